package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sensai/sensai-backend/internal/config"
	"github.com/sensai/sensai-backend/internal/model"
)

// MonitorRepository provides data access for the live quiz monitoring feature.
// It combines PostgreSQL (recent attempts) and Redis Pub/Sub (live events).
type MonitorRepository struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool, rdb *redis.Client) *MonitorRepository {
	return &MonitorRepository{pool: pool, rdb: rdb}
}

// Publish sends an attempt event to everyone watching the quiz.
func (r *MonitorRepository) Publish(ctx context.Context, ev model.AttemptEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal attempt event: %w", err)
	}
	return r.rdb.Publish(ctx, config.CacheKey.QuizAttemptChannel(ev.QuizID), payload).Err()
}

// Subscribe opens a Pub/Sub subscription on a quiz's attempt channel.
// The caller must Close it.
func (r *MonitorRepository) Subscribe(ctx context.Context, quizID int64) *redis.PubSub {
	return r.rdb.Subscribe(ctx, config.CacheKey.QuizAttemptChannel(quizID))
}

// RecentAttempts returns the latest attempts of a quiz as events, newest first,
// so a freshly connected monitor has something to show.
func (r *MonitorRepository) RecentAttempts(ctx context.Context, quizID int64, limit int) ([]model.AttemptEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, question_id, quiz_id, batch_id, is_correct, given_answer IS NOT NULL, mistake_type_id, attempted_at
		 FROM question_attempts
		 WHERE quiz_id = $1
		 ORDER BY attempted_at DESC, id DESC
		 LIMIT $2`, quizID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.AttemptEvent{}
	for rows.Next() {
		ev := model.AttemptEvent{Type: "attempt.recorded"}
		if err := rows.Scan(&ev.StudentID, &ev.QuestionID, &ev.QuizID, &ev.BatchID, &ev.IsCorrect,
			&ev.Answered, &ev.MistakeTypeID, &ev.AttemptedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
