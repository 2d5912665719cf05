package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StartSimulation implements start_simulation(user, scenario): deletes all
// prior SceneProgress + ConversationLog + UserProgress rows for (user,
// scenario) -- cascading deletes handle the first two once the
// UserProgress row is removed -- then inserts a fresh UserProgress pointing
// at the first scene, creates its SceneProgress(in_progress), and snapshots
// scenario content into orchestrator_data.
func (s *Store) StartSimulation(ctx context.Context, userID, scenarioID string) (*UserProgress, error) {
	if userID == "" {
		return nil, NewValidationError("user_id", "required")
	}

	scenario, err := s.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	firstScene, err := s.GetFirstScene(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	scenes, err := s.ListScenes(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	personas, err := s.ListPersonas(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	snapshot, err := buildScenarioSnapshot(scenario, scenes, personas)
	if err != nil {
		return nil, err
	}

	var progress *UserProgress
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		// Invariant (a): delete any prior run for this (user, scenario) pair.
		// Cascades (UserProgress -> SceneProgress, ConversationLog) remove
		// dependent rows automatically.
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM user_progresses WHERE user_id = $1 AND scenario_id = $2
		`, userID, scenarioID); err != nil {
			return fmt.Errorf("failed to clear prior progress: %w", err)
		}

		state := RunState{
			CurrentSceneID:    firstScene.ID,
			CurrentSceneIndex: 0,
			TurnCount:         0,
			SimulationStarted: false,
			UserReady:         false,
			StateVariables:    map[string]interface{}{},
		}
		orchestratorData := map[string]interface{}{
			OrchestratorDataKeyState:    state,
			OrchestratorDataKeySnapshot: snapshot,
		}
		orchestratorJSON, err := json.Marshal(orchestratorData)
		if err != nil {
			return fmt.Errorf("failed to marshal orchestrator_data: %w", err)
		}

		progress = &UserProgress{
			ID:               uuid.New().String(),
			UserID:           userID,
			ScenarioID:       scenarioID,
			CurrentSceneID:   &firstScene.ID,
			Status:           ProgressWaitingForBegin,
			ScenesCompleted:  []string{},
			SessionCount:     1,
			OrchestratorData: orchestratorData,
			StartedAt:        time.Now(),
			LastActivityAt:   time.Now(),
		}
		scenesCompletedJSON, _ := json.Marshal(progress.ScenesCompleted)

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_progresses (progress_id, user_id, scenario_id, current_scene_id, status, scenes_completed, session_count, orchestrator_data)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, progress.ID, progress.UserID, progress.ScenarioID, progress.CurrentSceneID, progress.Status, scenesCompletedJSON, progress.SessionCount, orchestratorJSON); err != nil {
			return fmt.Errorf("failed to create progress: %w", err)
		}

		sceneProgress := &SceneProgress{
			ID:         uuid.New().String(),
			ProgressID: progress.ID,
			SceneID:    firstScene.ID,
			Status:     SceneInProgress,
			StartedAt:  time.Now(),
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scene_progresses (scene_progress_id, progress_id, scene_id, status)
			VALUES ($1, $2, $3, $4)
		`, sceneProgress.ID, sceneProgress.ProgressID, sceneProgress.SceneID, sceneProgress.Status); err != nil {
			return fmt.Errorf("failed to create initial scene progress: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return progress, nil
}

func buildScenarioSnapshot(scenario *Scenario, scenes []*Scene, personas []*Persona) (ScenarioSnapshot, error) {
	if len(scenes) == 0 {
		return ScenarioSnapshot{}, ErrSceneHasNoScenes
	}

	personaNamesByID := make(map[string]string, len(personas))
	for _, p := range personas {
		personaNamesByID[p.ID] = p.Name
	}

	snapshotScenes := make([]SnapshotScene, 0, len(scenes))
	for _, sc := range scenes {
		involvedNames := make([]string, 0, len(sc.PersonasInvolved))
		for _, pid := range sc.PersonasInvolved {
			if name, ok := personaNamesByID[pid]; ok {
				involvedNames = append(involvedNames, name)
			}
		}
		snapshotScenes = append(snapshotScenes, SnapshotScene{
			ID:               sc.ID,
			Title:            sc.Title,
			Description:      sc.Description,
			UserGoal:         sc.UserGoal,
			SuccessMetric:    sc.EffectiveSuccessMetric(scenario.LearningObjectives),
			SceneOrder:       sc.SceneOrder,
			TimeoutTurns:     sc.TimeoutTurns,
			MaxAttempts:      sc.MaxAttempts,
			PersonasInvolved: involvedNames,
		})
	}

	snapshotPersonas := make([]SnapshotPersona, 0, len(personas))
	for _, p := range personas {
		snapshotPersonas = append(snapshotPersonas, SnapshotPersona{
			ID:        p.ID,
			Name:      p.Name,
			MentionID: p.MentionID,
		})
	}

	return ScenarioSnapshot{
		Scenario: SnapshotScenario{
			ID:                 scenario.ID,
			Title:              scenario.Title,
			Description:        scenario.Description,
			Challenge:          scenario.Challenge,
			LearningObjectives: scenario.LearningObjectives,
		},
		Scenes:   snapshotScenes,
		Personas: snapshotPersonas,
	}, nil
}

// GetProgress loads a UserProgress by id without locking.
func (s *Store) GetProgress(ctx context.Context, progressID string) (*UserProgress, error) {
	return s.getProgress(ctx, s.db, progressID, false)
}

// LockProgressForTurn loads a UserProgress row with SELECT ... FOR UPDATE
// NOWAIT inside tx, so a second concurrent turn on the same row fails fast
// with ErrProgressBusy rather than queuing behind the first.
func (s *Store) LockProgressForTurn(ctx context.Context, tx *sql.Tx, progressID string) (*UserProgress, error) {
	progress, err := s.getProgress(ctx, tx, progressID, true)
	if err != nil {
		if isLockNotAvailable(err) {
			return nil, ErrProgressBusy
		}
		return nil, err
	}
	if progress.Status == ProgressCompleted {
		return nil, ErrProgressCompleted
	}
	return progress, nil
}

func (s *Store) getProgress(ctx context.Context, q querier, progressID string, forUpdate bool) (*UserProgress, error) {
	query := `
		SELECT progress_id, user_id, scenario_id, current_scene_id, status, scenes_completed,
		       total_attempts, hints_used, forced_progressions, session_count, orchestrator_data,
		       started_at, last_activity_at, completed_at
		FROM user_progresses WHERE progress_id = $1
	`
	if forUpdate {
		query += " FOR UPDATE NOWAIT"
	}

	row := q.QueryRowContext(ctx, query, progressID)

	var p UserProgress
	var scenesCompletedJSON, orchestratorJSON []byte
	if err := row.Scan(&p.ID, &p.UserID, &p.ScenarioID, &p.CurrentSceneID, &p.Status, &scenesCompletedJSON,
		&p.TotalAttempts, &p.HintsUsed, &p.ForcedProgressions, &p.SessionCount, &orchestratorJSON,
		&p.StartedAt, &p.LastActivityAt, &p.CompletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to scan progress: %w", err)
	}
	if err := json.Unmarshal(scenesCompletedJSON, &p.ScenesCompleted); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenes_completed: %w", err)
	}
	if err := json.Unmarshal(orchestratorJSON, &p.OrchestratorData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal orchestrator_data: %w", err)
	}
	return &p, nil
}

func isLockNotAvailable(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "55P03" // lock_not_available
	}
	return false
}

// RunState decodes the typed RunState out of OrchestratorData["state"].
func (p *UserProgress) RunState() (RunState, error) {
	raw, ok := p.OrchestratorData[OrchestratorDataKeyState]
	if !ok {
		return RunState{}, fmt.Errorf("orchestrator_data missing %q slot", OrchestratorDataKeyState)
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return RunState{}, fmt.Errorf("failed to re-marshal state slot: %w", err)
	}
	var state RunState
	if err := json.Unmarshal(encoded, &state); err != nil {
		return RunState{}, fmt.Errorf("failed to decode state slot: %w", err)
	}
	return state, nil
}

// Snapshot decodes the ScenarioSnapshot out of OrchestratorData["snapshot"].
func (p *UserProgress) Snapshot() (ScenarioSnapshot, error) {
	raw, ok := p.OrchestratorData[OrchestratorDataKeySnapshot]
	if !ok {
		return ScenarioSnapshot{}, fmt.Errorf("orchestrator_data missing %q slot", OrchestratorDataKeySnapshot)
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return ScenarioSnapshot{}, fmt.Errorf("failed to re-marshal snapshot slot: %w", err)
	}
	var snapshot ScenarioSnapshot
	if err := json.Unmarshal(encoded, &snapshot); err != nil {
		return ScenarioSnapshot{}, fmt.Errorf("failed to decode snapshot slot: %w", err)
	}
	return snapshot, nil
}

// SaveOrchestratorState puts state into the state slot of
// progress.OrchestratorData; it does no I/O itself. The next UpdateProgress
// re-encodes and writes the whole JSON column, never a partial field -- the
// concrete answer to the "mark the JSON column dirty" note: every write
// re-encodes the full blob.
func SaveOrchestratorState(progress *UserProgress, state RunState) {
	if progress.OrchestratorData == nil {
		progress.OrchestratorData = map[string]interface{}{}
	}
	progress.OrchestratorData[OrchestratorDataKeyState] = state
}

// UpdateProgressInput carries the top-level UserProgress fields a turn may
// mutate. Nil/zero-value fields are skipped only via UpdateProgressFull,
// which writes every column -- progress rows are small enough that a
// partial-update builder buys nothing but surface area for bugs.
type UpdateProgressInput struct {
	CurrentSceneID     *string
	Status             ProgressStatus
	ScenesCompleted    []string
	TotalAttempts      int
	HintsUsed          int
	ForcedProgressions int
	OrchestratorData   map[string]interface{}
	CompletedAt        *time.Time
}

// UpdateProgress writes every mutable UserProgress column inside tx, and
// bumps last_activity_at. Always called with the full post-turn field set
// so no partial/stale write can slip through.
func (s *Store) UpdateProgress(ctx context.Context, tx *sql.Tx, progressID string, in UpdateProgressInput) error {
	scenesCompleted := in.ScenesCompleted
	if scenesCompleted == nil {
		scenesCompleted = []string{}
	}
	scenesCompletedJSON, err := json.Marshal(scenesCompleted)
	if err != nil {
		return fmt.Errorf("failed to marshal scenes_completed: %w", err)
	}
	orchestratorJSON, err := json.Marshal(in.OrchestratorData)
	if err != nil {
		return fmt.Errorf("failed to marshal orchestrator_data: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE user_progresses
		SET current_scene_id = $1, status = $2, scenes_completed = $3, total_attempts = $4,
		    hints_used = $5, forced_progressions = $6, orchestrator_data = $7,
		    last_activity_at = now(), completed_at = $8
		WHERE progress_id = $9
	`, in.CurrentSceneID, in.Status, scenesCompletedJSON, in.TotalAttempts, in.HintsUsed,
		in.ForcedProgressions, orchestratorJSON, in.CompletedAt, progressID)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

// GetCurrentScene returns the Scene that progress.CurrentSceneID points at.
func (s *Store) GetCurrentScene(ctx context.Context, progress *UserProgress) (*Scene, error) {
	if progress.CurrentSceneID == nil {
		return nil, ErrSceneNotFound
	}
	return s.GetScene(ctx, *progress.CurrentSceneID)
}
