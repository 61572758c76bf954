package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sensai/sensai-backend/internal/model"
)

// ChatRepository handles persisted tutor transcripts.
type ChatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// SaveTranscript writes every turn of a transcript in one transaction.
// Re-delivering the same transcript is a no-op thanks to the position key.
func (r *ChatRepository) SaveTranscript(ctx context.Context, log *model.ChatLog) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var batchID *uuid.UUID
	if log.BatchID != uuid.Nil {
		batchID = &log.BatchID
	}

	batch := &pgx.Batch{}
	for i, turn := range log.Turns {
		batch.Queue(
			`INSERT INTO chat_messages (student_id, question_id, quiz_id, batch_id, position, role, content, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (student_id, quiz_id, question_id, batch_id, position) DO NOTHING`,
			log.StudentID, log.QuestionID, log.QuizID, batchID, i, turn.Role, turn.Content, log.LoggedAt,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert chat messages: %w", err)
	}
	return tx.Commit(ctx)
}

// ListByQuestion retrieves the latest persisted transcript of a student for one question.
func (r *ChatRepository) ListByQuestion(ctx context.Context, studentID, quizID, questionID int64) ([]model.ChatTurn, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role, content
		 FROM chat_messages
		 WHERE student_id = $1 AND quiz_id = $2 AND question_id = $3
		   AND batch_id IS NOT DISTINCT FROM (
		       SELECT batch_id FROM chat_messages
		       WHERE student_id = $1 AND quiz_id = $2 AND question_id = $3
		       ORDER BY created_at DESC, id DESC LIMIT 1)
		 ORDER BY position ASC`,
		studentID, quizID, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []model.ChatTurn
	for rows.Next() {
		var t model.ChatTurn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
