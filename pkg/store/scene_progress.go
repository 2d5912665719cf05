package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateSceneProgress inserts a new in_progress SceneProgress row for
// (progress, scene), used when advancement moves the run onto a new scene.
func (s *Store) CreateSceneProgress(ctx context.Context, tx *sql.Tx, progressID, sceneID string) (*SceneProgress, error) {
	sp := &SceneProgress{
		ID:         uuid.New().String(),
		ProgressID: progressID,
		SceneID:    sceneID,
		Status:     SceneInProgress,
		StartedAt:  time.Now(),
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO scene_progresses (scene_progress_id, progress_id, scene_id, status)
		VALUES ($1, $2, $3, $4)
	`, sp.ID, sp.ProgressID, sp.SceneID, sp.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to create scene progress: %w", err)
	}
	return sp, nil
}

// GetSceneProgress loads the SceneProgress for (progress, scene).
func (s *Store) GetSceneProgress(ctx context.Context, q querier, progressID, sceneID string) (*SceneProgress, error) {
	row := q.QueryRowContext(ctx, `
		SELECT scene_progress_id, progress_id, scene_id, status, attempts, hints_used, goal_achieved,
		       forced_progression, messages_sent, ai_responses, goal_achievement_score, interaction_quality,
		       started_at, completed_at
		FROM scene_progresses WHERE progress_id = $1 AND scene_id = $2
	`, progressID, sceneID)

	var sp SceneProgress
	if err := row.Scan(&sp.ID, &sp.ProgressID, &sp.SceneID, &sp.Status, &sp.Attempts, &sp.HintsUsed, &sp.GoalAchieved,
		&sp.ForcedProgression, &sp.MessagesSent, &sp.AIResponses, &sp.GoalAchievementScore, &sp.InteractionQuality,
		&sp.StartedAt, &sp.CompletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("scene progress for scene %s: %w", sceneID, ErrProgressNotFound)
		}
		return nil, fmt.Errorf("failed to scan scene progress: %w", err)
	}
	return &sp, nil
}

// UpdateSceneProgress writes every mutable SceneProgress column.
func (s *Store) UpdateSceneProgress(ctx context.Context, tx *sql.Tx, sp *SceneProgress) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE scene_progresses
		SET status = $1, attempts = $2, hints_used = $3, goal_achieved = $4, forced_progression = $5,
		    messages_sent = $6, ai_responses = $7, goal_achievement_score = $8, interaction_quality = $9,
		    completed_at = $10
		WHERE scene_progress_id = $11
	`, sp.Status, sp.Attempts, sp.HintsUsed, sp.GoalAchieved, sp.ForcedProgression,
		sp.MessagesSent, sp.AIResponses, sp.GoalAchievementScore, sp.InteractionQuality,
		sp.CompletedAt, sp.ID)
	if err != nil {
		return fmt.Errorf("failed to update scene progress: %w", err)
	}
	return nil
}

// ListSceneProgresses returns every SceneProgress for a run, keyed by scene id.
func (s *Store) ListSceneProgresses(ctx context.Context, progressID string) (map[string]*SceneProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scene_progress_id, progress_id, scene_id, status, attempts, hints_used, goal_achieved,
		       forced_progression, messages_sent, ai_responses, goal_achievement_score, interaction_quality,
		       started_at, completed_at
		FROM scene_progresses WHERE progress_id = $1
	`, progressID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scene progresses: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*SceneProgress)
	for rows.Next() {
		var sp SceneProgress
		if err := rows.Scan(&sp.ID, &sp.ProgressID, &sp.SceneID, &sp.Status, &sp.Attempts, &sp.HintsUsed, &sp.GoalAchieved,
			&sp.ForcedProgression, &sp.MessagesSent, &sp.AIResponses, &sp.GoalAchievementScore, &sp.InteractionQuality,
			&sp.StartedAt, &sp.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scene progress: %w", err)
		}
		result[sp.SceneID] = &sp
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
