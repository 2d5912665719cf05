package api

import "github.com/gin-gonic/gin"

// NewRouter builds the gin.Engine exposing the six simulation endpoints
// behind the access-log, security-headers, and auth-boundary middleware.
func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(), securityHeaders())

	r.GET("/health", h.Health)

	sim := r.Group("/simulation", requireUserID())
	sim.POST("/start", h.StartSimulation)
	sim.POST("/linear-chat", h.LinearChat)
	sim.POST("/progress", h.ManualProgress)
	sim.GET("/progress/:user_progress_id", h.GetProgress)
	sim.GET("/grade", h.GetGrade)
	sim.GET("/user-responses", h.GetUserResponses)

	return r
}
