package store

import "time"

// Scenario is an immutable-by-runtime authoring artifact: a case study with
// an ordered timeline of scenes and a cast of personas.
type Scenario struct {
	ID                 string
	Title              string
	Description        string
	Challenge          string
	Industry           string
	StudentRole        string
	LearningObjectives []string
	CreatedAt          time.Time
}

// Scene is one linear step in a scenario's timeline.
type Scene struct {
	ID              string
	ScenarioID      string
	Title           string
	Description     string
	UserGoal        string
	SuccessMetric   *string
	SceneOrder      int
	TimeoutTurns    int
	MaxAttempts     int
	PersonasInvolved []string // persona IDs, declaration order
}

// EffectiveSuccessMetric returns SuccessMetric, falling back to the first
// learning objective, then to UserGoal, per §3's fallback rule.
func (s Scene) EffectiveSuccessMetric(scenarioObjectives []string) string {
	if s.SuccessMetric != nil && *s.SuccessMetric != "" {
		return *s.SuccessMetric
	}
	if len(scenarioObjectives) > 0 {
		return scenarioObjectives[0]
	}
	return s.UserGoal
}

// Persona is an AI-played character the learner may address with an @mention.
type Persona struct {
	ID                string
	ScenarioID        string
	Name              string
	MentionID         string
	Role              string
	Background        string
	Correlation       string
	PrimaryGoals      []string
	PersonalityTraits map[string]int
	DeclarationOrder  int
}

// ProgressStatus enumerates UserProgress.Status values.
type ProgressStatus string

const (
	ProgressWaitingForBegin ProgressStatus = "waiting_for_begin"
	ProgressInProgress      ProgressStatus = "in_progress"
	ProgressCompleted       ProgressStatus = "completed"
	ProgressAbandoned       ProgressStatus = "abandoned"
)

// UserProgress is one learner's run of one scenario.
type UserProgress struct {
	ID                  string
	UserID              string
	ScenarioID          string
	CurrentSceneID      *string
	Status              ProgressStatus
	ScenesCompleted     []string
	TotalAttempts       int
	HintsUsed           int
	ForcedProgressions  int
	SessionCount        int
	OrchestratorData    map[string]interface{}
	StartedAt           time.Time
	LastActivityAt      time.Time
	CompletedAt         *time.Time
}

// SceneProgressStatus enumerates SceneProgress.Status values.
type SceneProgressStatus string

const (
	SceneNotStarted SceneProgressStatus = "not_started"
	SceneInProgress SceneProgressStatus = "in_progress"
	SceneCompleted  SceneProgressStatus = "completed"
	SceneSkipped    SceneProgressStatus = "skipped"
)

// SceneProgress is the per-scene attempt record, one per (progress, scene).
type SceneProgress struct {
	ID                    string
	ProgressID            string
	SceneID               string
	Status                SceneProgressStatus
	Attempts              int
	HintsUsed             int
	GoalAchieved          bool
	ForcedProgression     bool
	MessagesSent          int
	AIResponses           int
	GoalAchievementScore  *int
	InteractionQuality    *float64
	StartedAt             time.Time
	CompletedAt           *time.Time
}

// MessageType enumerates ConversationLog.MessageType values.
type MessageType string

const (
	MessageUser         MessageType = "user"
	MessageAIPersona    MessageType = "ai_persona"
	MessageOrchestrator MessageType = "orchestrator"
	MessageSystem       MessageType = "system"
	MessageHint         MessageType = "hint"
)

// ConversationLog is one append-only turn record.
type ConversationLog struct {
	ID                string
	ProgressID        string
	SceneID           string
	MessageType       MessageType
	SenderName        string
	PersonaID         *string
	MessageContent    string
	MessageOrder      int
	AttemptNumber     int
	ProcessingTimeMS  *int
	ModelVersion      *string
	CreatedAt         time.Time
}

// RunState is the typed value carried at orchestrator_data["state"]. It is
// always loaded, mutated, and re-marshaled as a whole -- never patched
// in-place on a retained map -- so the JSON column is correctly rewritten by
// SaveOrchestratorState on every turn.
type RunState struct {
	CurrentSceneID    string                 `json:"current_scene_id"`
	CurrentSceneIndex int                    `json:"current_scene_index"`
	TurnCount         int                    `json:"turn_count"`
	SimulationStarted bool                   `json:"simulation_started"`
	UserReady         bool                   `json:"user_ready"`
	StateVariables    map[string]interface{} `json:"state_variables"`
}

// ScenarioSnapshot is taken at start_simulation time and stashed in
// orchestrator_data so the orchestrator never has to re-query scenario
// content mid-run.
type ScenarioSnapshot struct {
	Scenario SnapshotScenario  `json:"scenario"`
	Scenes   []SnapshotScene   `json:"scenes"`
	Personas []SnapshotPersona `json:"personas"`
}

type SnapshotScenario struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Challenge          string   `json:"challenge"`
	LearningObjectives []string `json:"learning_objectives"`
}

type SnapshotScene struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	UserGoal          string   `json:"user_goal"`
	SuccessMetric     string   `json:"success_metric"`
	SceneOrder        int      `json:"scene_order"`
	TimeoutTurns      int      `json:"timeout_turns"`
	MaxAttempts       int      `json:"max_attempts"`
	PersonasInvolved  []string `json:"personas_involved"` // names, as seen by the orchestrator prompt
}

type SnapshotPersona struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MentionID string `json:"mention_id"`
}

// OrchestratorDataKeyState is the well-known key under which RunState is
// stored in UserProgress.OrchestratorData.
const OrchestratorDataKeyState = "state"

// OrchestratorDataKeySnapshot is the well-known key under which
// ScenarioSnapshot is stored in UserProgress.OrchestratorData.
const OrchestratorDataKeySnapshot = "snapshot"
