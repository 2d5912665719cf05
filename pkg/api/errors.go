package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/codeready-toolchain/simulator/pkg/store"
	"github.com/gin-gonic/gin"
)

// writeServiceError maps a store-layer error to an HTTP response on c, in
// the same spirit as a echo.HTTPError: one status code, one message.
func writeServiceError(c *gin.Context, err error) {
	var validErr *store.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validErr.Error()})
		return
	}

	switch {
	case errors.Is(err, store.ErrScenarioNotFound),
		errors.Is(err, store.ErrSceneNotFound),
		errors.Is(err, store.ErrProgressNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, store.ErrSceneHasNoScenes):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, store.ErrProgressCompleted), errors.Is(err, store.ErrProgressBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, store.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	slog.Error("unexpected service error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
