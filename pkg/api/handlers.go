package api

import (
	"context"
	"net/http"

	"github.com/codeready-toolchain/simulator/pkg/database"
	"github.com/codeready-toolchain/simulator/pkg/grader"
	"github.com/codeready-toolchain/simulator/pkg/models"
	"github.com/codeready-toolchain/simulator/pkg/orchestrator"
	"github.com/codeready-toolchain/simulator/pkg/router"
	"github.com/codeready-toolchain/simulator/pkg/store"
	"github.com/gin-gonic/gin"
)

// Handlers wires the six simulation endpoints to the domain layer.
type Handlers struct {
	store        *store.Store
	orchestrator *orchestrator.Orchestrator
	grader       *grader.Grader
}

// NewHandlers builds a Handlers value from its already-constructed
// dependencies.
func NewHandlers(st *store.Store, orch *orchestrator.Orchestrator, g *grader.Grader) *Handlers {
	return &Handlers{store: st, orchestrator: orch, grader: g}
}

// StartSimulation handles POST /simulation/start.
func (h *Handlers) StartSimulation(c *gin.Context) {
	var req models.StartSimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	progress, err := h.store.StartSimulation(c.Request.Context(), userID(c), req.ScenarioID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	scenario, err := h.store.GetScenario(c.Request.Context(), req.ScenarioID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	scene, err := h.store.GetCurrentScene(c.Request.Context(), progress)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StartSimulationResponse{
		UserProgressID:   progress.ID,
		Scenario:         models.NewScenarioView(scenario),
		CurrentScene:     models.NewSceneView(scene),
		SimulationStatus: string(progress.Status),
	})
}

// LinearChat handles POST /simulation/linear-chat.
func (h *Handlers) LinearChat(c *gin.Context) {
	var req models.LinearChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.orchestrator.ProcessTurn(c.Request.Context(), req.UserProgressID, req.SceneID, req.Message)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	resp := models.LinearChatResponse{
		Message:        result.Reply,
		SceneID:        result.SceneID,
		SceneCompleted: result.SceneCompleted,
		NextSceneID:    result.NextSceneID,
		PersonaName:    result.PersonaName,
		PersonaID:      result.PersonaID,
		TurnCount:      result.TurnCount,
	}
	if result.NextScene != nil {
		view := models.NewSceneView(result.NextScene)
		resp.NextScene = &view
	}
	c.JSON(http.StatusOK, resp)
}

// ManualProgress handles POST /simulation/progress: an explicit advance
// request, distinct from the chat-text SUBMIT_FOR_GRADING sentinel.
func (h *Handlers) ManualProgress(c *gin.Context) {
	var req models.ManualProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.orchestrator.ManualAdvance(c.Request.Context(), req.UserProgressID, req.CurrentSceneID, req.GoalAchieved, req.ForcedProgression)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	resp := models.SceneProgressResponse{Success: true}
	if result.NextScene != nil {
		view := models.NewSceneView(result.NextScene)
		resp.NextScene = &view
	} else if result.SceneCompleted && result.NextSceneID == nil {
		resp.SimulationComplete = true
		resp.CompletionSummary = "All scenes completed. Request GET /simulation/grade for the full report."
	}
	c.JSON(http.StatusOK, resp)
}

// GetProgress handles GET /simulation/progress/{user_progress_id}.
func (h *Handlers) GetProgress(c *gin.Context) {
	progressID := c.Param("user_progress_id")

	progress, err := h.store.GetProgress(c.Request.Context(), progressID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	state, err := progress.RunState()
	if err != nil {
		writeServiceError(c, err)
		return
	}

	resp := models.ProgressSnapshotResponse{
		UserProgressID:     progress.ID,
		ScenarioID:         progress.ScenarioID,
		Status:             string(progress.Status),
		CurrentSceneID:     progress.CurrentSceneID,
		ScenesCompleted:    progress.ScenesCompleted,
		TotalAttempts:      progress.TotalAttempts,
		HintsUsed:          progress.HintsUsed,
		ForcedProgressions: progress.ForcedProgressions,
		TurnCount:          state.TurnCount,
	}
	c.JSON(http.StatusOK, resp)
}

// GetGrade handles GET /simulation/grade?user_progress_id=....
func (h *Handlers) GetGrade(c *gin.Context) {
	progressID := c.Query("user_progress_id")
	if progressID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_progress_id is required"})
		return
	}

	report, err := h.loadGradeReport(c.Request.Context(), progressID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	scenes := make([]models.SceneGradeView, len(report.Scenes))
	for i, sg := range report.Scenes {
		scenes[i] = models.SceneGradeView{
			ID:            sg.SceneID,
			Title:         sg.Title,
			Objective:     sg.Objective,
			UserResponses: sg.UserResponses,
			Score:         sg.Score,
			Feedback:      sg.Feedback,
			TeachingNotes: sg.TeachingNotes,
		}
	}
	c.JSON(http.StatusOK, models.GradeResponse{
		OverallScore:    report.OverallScore,
		OverallFeedback: report.OverallFeedback,
		Scenes:          scenes,
	})
}

func (h *Handlers) loadGradeReport(ctx context.Context, progressID string) (*grader.Report, error) {
	progress, err := h.store.GetProgress(ctx, progressID)
	if err != nil {
		return nil, err
	}
	scenario, err := h.store.GetScenario(ctx, progress.ScenarioID)
	if err != nil {
		return nil, err
	}
	scenes, err := h.store.ListScenes(ctx, progress.ScenarioID)
	if err != nil {
		return nil, err
	}
	return h.grader.Grade(ctx, progress, scenario, scenes)
}

// Health handles GET /health: pings the database and reports connection
// pool statistics alongside it.
func (h *Handlers) Health(c *gin.Context) {
	status, err := database.Health(c.Request.Context(), h.store.DB())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetUserResponses handles GET /simulation/user-responses?user_progress_id=...&scene_id=....
func (h *Handlers) GetUserResponses(c *gin.Context) {
	progressID := c.Query("user_progress_id")
	sceneID := c.Query("scene_id")
	if progressID == "" || sceneID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_progress_id and scene_id are required"})
		return
	}

	logs, err := h.store.ListUserResponses(c.Request.Context(), progressID, sceneID, router.SubmitForGradingSentinel)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	turns := make([]models.ConversationTurn, len(logs))
	for i, l := range logs {
		turns[i] = models.ConversationTurn{
			MessageType:    string(l.MessageType),
			SenderName:     l.SenderName,
			MessageContent: l.MessageContent,
			MessageOrder:   l.MessageOrder,
			AttemptNumber:  l.AttemptNumber,
		}
	}
	c.JSON(http.StatusOK, models.UserResponsesResponse{SceneID: sceneID, Responses: turns})
}
