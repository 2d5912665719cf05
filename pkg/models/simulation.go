// Package models contains the HTTP request/response DTOs for the
// simulation API -- the wire shapes, kept separate from the domain types in
// pkg/store so the HTTP surface can evolve independently of storage.
package models

import "github.com/codeready-toolchain/simulator/pkg/store"

// StartSimulationRequest is the body of POST /simulation/start. UserID is
// accepted for parity with spec.md's literal request shape but the acting
// identity is always taken from the trusted X-User-Id header.
type StartSimulationRequest struct {
	UserID     string `json:"user_id"`
	ScenarioID string `json:"scenario_id" binding:"required"`
}

// StartSimulationResponse is the response of POST /simulation/start.
type StartSimulationResponse struct {
	UserProgressID   string       `json:"user_progress_id"`
	Scenario         ScenarioView `json:"scenario"`
	CurrentScene     SceneView    `json:"current_scene"`
	SimulationStatus string       `json:"simulation_status"`
}

// LinearChatRequest is the body of POST /simulation/linear-chat.
type LinearChatRequest struct {
	UserProgressID string `json:"user_progress_id" binding:"required"`
	SceneID        string `json:"scene_id"`
	Message        string `json:"message" binding:"required"`
}

// LinearChatResponse is the response of POST /simulation/linear-chat.
type LinearChatResponse struct {
	Message        string     `json:"message"`
	SceneID        string     `json:"scene_id"`
	SceneCompleted bool       `json:"scene_completed"`
	NextSceneID    *string    `json:"next_scene_id,omitempty"`
	NextScene      *SceneView `json:"next_scene,omitempty"`
	PersonaName    string     `json:"persona_name"`
	PersonaID      *string    `json:"persona_id,omitempty"`
	TurnCount      int        `json:"turn_count"`
}

// ManualProgressRequest is the body of POST /simulation/progress: an
// explicit manual advance, used by the submit flow.
type ManualProgressRequest struct {
	UserProgressID  string `json:"user_progress_id" binding:"required"`
	CurrentSceneID  string `json:"current_scene_id" binding:"required"`
	GoalAchieved    bool   `json:"goal_achieved"`
	ForcedProgression bool `json:"forced_progression"`
}

// SceneProgressResponse is the response of POST /simulation/progress.
type SceneProgressResponse struct {
	Success           bool       `json:"success"`
	NextScene         *SceneView `json:"next_scene,omitempty"`
	SimulationComplete bool      `json:"simulation_complete"`
	CompletionSummary  string    `json:"completion_summary,omitempty"`
}

// ProgressSnapshotResponse is the response of GET /simulation/progress/{id}.
type ProgressSnapshotResponse struct {
	UserProgressID     string   `json:"user_progress_id"`
	ScenarioID         string   `json:"scenario_id"`
	Status             string   `json:"status"`
	CurrentSceneID     *string  `json:"current_scene_id,omitempty"`
	ScenesCompleted    []string `json:"scenes_completed"`
	TotalAttempts      int      `json:"total_attempts"`
	HintsUsed          int      `json:"hints_used"`
	ForcedProgressions int      `json:"forced_progressions"`
	TurnCount          int      `json:"turn_count"`
}

// GradeResponse is the response of GET /simulation/grade.
type GradeResponse struct {
	OverallScore    int               `json:"overall_score"`
	OverallFeedback string            `json:"overall_feedback"`
	Scenes          []SceneGradeView  `json:"scenes"`
}

// SceneGradeView is one scene's entry in GradeResponse.
type SceneGradeView struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Objective     string   `json:"objective"`
	UserResponses []string `json:"user_responses"`
	Score         int      `json:"score"`
	Feedback      string   `json:"feedback"`
	TeachingNotes string   `json:"teaching_notes,omitempty"`
}

// UserResponsesResponse is the response of GET /simulation/user-responses.
type UserResponsesResponse struct {
	SceneID   string             `json:"scene_id"`
	Responses []ConversationTurn `json:"responses"`
}

// ConversationTurn is one row of a transcript, as seen over HTTP.
type ConversationTurn struct {
	MessageType    string `json:"message_type"`
	SenderName     string `json:"sender_name"`
	MessageContent string `json:"message_content"`
	MessageOrder   int    `json:"message_order"`
	AttemptNumber  int    `json:"attempt_number"`
}

// ScenarioView is the scenario shape embedded in API responses.
type ScenarioView struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Challenge          string   `json:"challenge,omitempty"`
	LearningObjectives []string `json:"learning_objectives,omitempty"`
}

// SceneView is the scene shape embedded in API responses.
type SceneView struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	UserGoal         string   `json:"user_goal"`
	SceneOrder       int      `json:"scene_order"`
	TimeoutTurns     int      `json:"timeout_turns"`
	MaxAttempts      int      `json:"max_attempts"`
	PersonasInvolved []string `json:"personas_involved"`
}

// NewScenarioView converts a store.Scenario for HTTP output.
func NewScenarioView(s *store.Scenario) ScenarioView {
	return ScenarioView{
		ID:                 s.ID,
		Title:              s.Title,
		Description:        s.Description,
		Challenge:           s.Challenge,
		LearningObjectives: s.LearningObjectives,
	}
}

// NewSceneView converts a store.Scene for HTTP output.
func NewSceneView(s *store.Scene) SceneView {
	return SceneView{
		ID:               s.ID,
		Title:            s.Title,
		Description:      s.Description,
		UserGoal:         s.UserGoal,
		SceneOrder:       s.SceneOrder,
		TimeoutTurns:     s.TimeoutTurns,
		MaxAttempts:      s.MaxAttempts,
		PersonasInvolved: s.PersonasInvolved,
	}
}
