package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sensai/sensai-backend/internal/model"
)

// AttemptRepository handles question attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, student_id, question_id, quiz_id, batch_id, attempted_at, given_answer,
	is_correct, num_messages, confidence, mistake_type_id`

// Insert writes one attempt row.
func (r *AttemptRepository) Insert(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO question_attempts
			(student_id, question_id, quiz_id, batch_id, attempted_at, given_answer, is_correct, num_messages, confidence, mistake_type_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		a.StudentID, a.QuestionID, a.QuizID, a.BatchID, a.AttemptedAt, a.GivenAnswer,
		a.IsCorrect, a.NumMessages, a.Confidence, a.MistakeTypeID,
	).Scan(&a.ID)
}

// FindLatest retrieves the most recent attempt of a student at a question within a quiz.
func (r *AttemptRepository) FindLatest(ctx context.Context, studentID, questionID, quizID int64) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM question_attempts
		 WHERE student_id = $1 AND question_id = $2 AND quiz_id = $3
		 ORDER BY attempted_at DESC, id DESC
		 LIMIT 1`,
		studentID, questionID, quizID,
	).Scan(&a.ID, &a.StudentID, &a.QuestionID, &a.QuizID, &a.BatchID, &a.AttemptedAt, &a.GivenAnswer,
		&a.IsCorrect, &a.NumMessages, &a.Confidence, &a.MistakeTypeID)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Touch moves an existing attempt into a new batch and timestamp without regrading it.
func (r *AttemptRepository) Touch(ctx context.Context, attemptID int64, batchID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE question_attempts SET attempted_at = $1, batch_id = $2 WHERE id = $3`,
		at, batchID, attemptID,
	)
	return err
}

// ListByStudent retrieves a student's attempts, newest first, optionally limited to one quiz.
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID int64, quizID *int64, limit, offset int) ([]model.Attempt, int, error) {
	where := ` WHERE student_id = $1`
	args := []any{studentID}
	if quizID != nil {
		args = append(args, *quizID)
		where += fmt.Sprintf(" AND quiz_id = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM question_attempts`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + attemptColumns + ` FROM question_attempts` + where +
		fmt.Sprintf(` ORDER BY attempted_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.StudentID, &a.QuestionID, &a.QuizID, &a.BatchID, &a.AttemptedAt, &a.GivenAnswer,
			&a.IsCorrect, &a.NumMessages, &a.Confidence, &a.MistakeTypeID); err != nil {
			return nil, 0, err
		}
		attempts = append(attempts, a)
	}
	return attempts, total, rows.Err()
}
