package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// AppendConversationLogInput carries the fields needed to append one turn
// record. UI-only control events (e.g. SUBMIT_FOR_GRADING) MUST NOT be
// logged through this path as message_type=user; the router/orchestrator
// never call it for those.
type AppendConversationLogInput struct {
	ProgressID       string
	SceneID          string
	MessageType      MessageType
	SenderName       string
	PersonaID        *string
	MessageContent   string
	AttemptNumber    int
	ProcessingTimeMS *int
	ModelVersion     *string
}

// AppendConversationLog inserts the next row for (progress, scene), with
// message_order computed as max(message_order)+1 inside the same
// transaction so it is always strictly increasing even under concurrent
// append attempts against different scenes of the same run.
func (s *Store) AppendConversationLog(ctx context.Context, tx *sql.Tx, in AppendConversationLogInput) (*ConversationLog, error) {
	var maxOrder sql.NullInt64
	if err := tx.QueryRowContext(ctx, `
		SELECT MAX(message_order) FROM conversation_logs WHERE progress_id = $1 AND scene_id = $2
	`, in.ProgressID, in.SceneID).Scan(&maxOrder); err != nil {
		return nil, fmt.Errorf("failed to compute next message_order: %w", err)
	}

	nextOrder := 1
	if maxOrder.Valid {
		nextOrder = int(maxOrder.Int64) + 1
	}

	log := &ConversationLog{
		ID:               uuid.New().String(),
		ProgressID:       in.ProgressID,
		SceneID:          in.SceneID,
		MessageType:      in.MessageType,
		SenderName:       in.SenderName,
		PersonaID:        in.PersonaID,
		MessageContent:   in.MessageContent,
		MessageOrder:     nextOrder,
		AttemptNumber:    in.AttemptNumber,
		ProcessingTimeMS: in.ProcessingTimeMS,
		ModelVersion:     in.ModelVersion,
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO conversation_logs (log_id, progress_id, scene_id, message_type, sender_name, persona_id,
		                                message_content, message_order, attempt_number, processing_time_ms, model_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, log.ID, log.ProgressID, log.SceneID, log.MessageType, log.SenderName, log.PersonaID,
		log.MessageContent, log.MessageOrder, log.AttemptNumber, log.ProcessingTimeMS, log.ModelVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to append conversation log: %w", err)
	}

	return log, nil
}

// ListRecentTurns reads the last n rows for (progress, scene), ordered
// oldest-first for direct use as LLM context (descending read, reversed).
func (s *Store) ListRecentTurns(ctx context.Context, progressID, sceneID string, n int) ([]*ConversationLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT log_id, progress_id, scene_id, message_type, sender_name, persona_id, message_content,
		       message_order, attempt_number, processing_time_ms, model_version, created_at
		FROM conversation_logs
		WHERE progress_id = $1 AND scene_id = $2
		ORDER BY message_order DESC
		LIMIT $3
	`, progressID, sceneID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent turns: %w", err)
	}
	defer rows.Close()

	logs, err := scanConversationLogs(rows)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

// ListUserResponses returns every message_type=user row for (progress,
// scene), excluding the SUBMIT_FOR_GRADING control sentinel, ordered by
// message_order ascending -- the set the grader scores and the
// user-responses HTTP endpoint returns.
func (s *Store) ListUserResponses(ctx context.Context, progressID, sceneID, submitSentinel string) ([]*ConversationLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT log_id, progress_id, scene_id, message_type, sender_name, persona_id, message_content,
		       message_order, attempt_number, processing_time_ms, model_version, created_at
		FROM conversation_logs
		WHERE progress_id = $1 AND scene_id = $2 AND message_type = $3 AND message_content <> $4
		ORDER BY message_order ASC
	`, progressID, sceneID, MessageUser, submitSentinel)
	if err != nil {
		return nil, fmt.Errorf("failed to list user responses: %w", err)
	}
	defer rows.Close()
	return scanConversationLogs(rows)
}

func scanConversationLogs(rows *sql.Rows) ([]*ConversationLog, error) {
	var logs []*ConversationLog
	for rows.Next() {
		var l ConversationLog
		if err := rows.Scan(&l.ID, &l.ProgressID, &l.SceneID, &l.MessageType, &l.SenderName, &l.PersonaID,
			&l.MessageContent, &l.MessageOrder, &l.AttemptNumber, &l.ProcessingTimeMS, &l.ModelVersion, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation log: %w", err)
		}
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
