package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sensai/sensai-backend/internal/model"
)

// QuizRepository handles quiz and quiz↔question association data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

const quizColumns = `z.id, z.course_id, z.title, z.prompt, z.access_code,
	(SELECT COUNT(*) FROM quiz_questions qq WHERE qq.quiz_id = z.id),
	z.created_at, z.updated_at`

func scanQuiz(row pgx.Row, z *model.Quiz) error {
	return row.Scan(&z.ID, &z.CourseID, &z.Title, &z.Prompt, &z.AccessCode, &z.QuestionCount, &z.CreatedAt, &z.UpdatedAt)
}

// ListByCourse retrieves all quizzes of a course with their question counts.
func (r *QuizRepository) ListByCourse(ctx context.Context, courseID int64) ([]model.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quizColumns+`
		 FROM quizzes z WHERE z.course_id = $1
		 ORDER BY z.created_at DESC`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var z model.Quiz
		if err := scanQuiz(rows, &z); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, z)
	}
	return quizzes, rows.Err()
}

// GetByID retrieves a quiz by ID.
func (r *QuizRepository) GetByID(ctx context.Context, id int64) (*model.Quiz, error) {
	z := &model.Quiz{}
	if err := scanQuiz(r.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes z WHERE z.id = $1`, id), z); err != nil {
		return nil, err
	}
	return z, nil
}

// GetByAccessCode retrieves the quiz a student is trying to unlock.
func (r *QuizRepository) GetByAccessCode(ctx context.Context, code string) (*model.Quiz, error) {
	z := &model.Quiz{}
	if err := scanQuiz(r.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes z WHERE z.access_code = $1`, code), z); err != nil {
		return nil, err
	}
	return z, nil
}

// Exists reports whether a quiz with the given ID exists.
func (r *QuizRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// Create inserts a new quiz. A duplicate access code surfaces as a 23505 PgError.
func (r *QuizRepository) Create(ctx context.Context, z *model.Quiz) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (course_id, title, prompt, access_code)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		z.CourseID, z.Title, z.Prompt, z.AccessCode,
	).Scan(&z.ID, &z.CreatedAt, &z.UpdatedAt)
}

// Update modifies a quiz's title, prompt and access code.
func (r *QuizRepository) Update(ctx context.Context, z *model.Quiz) error {
	return r.pool.QueryRow(ctx,
		`UPDATE quizzes SET title = $1, prompt = $2, access_code = $3, updated_at = NOW()
		 WHERE id = $4
		 RETURNING course_id, created_at, updated_at`,
		z.Title, z.Prompt, z.AccessCode, z.ID,
	).Scan(&z.CourseID, &z.CreatedAt, &z.UpdatedAt)
}

// Delete removes a quiz by ID.
func (r *QuizRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	return err
}

// AddQuestion associates a question with a quiz. The primary key rejects duplicates with 23505.
func (r *QuizRepository) AddQuestion(ctx context.Context, quizID, questionID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO quiz_questions (quiz_id, question_id) VALUES ($1, $2)`,
		quizID, questionID,
	)
	return err
}

// RemoveQuestion drops an association and reports whether one existed.
func (r *QuizRepository) RemoveQuestion(ctx context.Context, quizID, questionID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM quiz_questions WHERE quiz_id = $1 AND question_id = $2`,
		quizID, questionID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// HasQuestion reports whether a question belongs to a quiz.
func (r *QuizRepository) HasQuestion(ctx context.Context, quizID, questionID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quiz_questions WHERE quiz_id = $1 AND question_id = $2)`,
		quizID, questionID,
	).Scan(&ok)
	return ok, err
}
