package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sensai/sensai-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `q.id, q.course_id, q.title, q.description, q.prompt, q.correct_answer, q.incorrect_answers, q.created_at, q.updated_at`

func scanQuestion(row pgx.Row, q *model.Question) error {
	return row.Scan(&q.ID, &q.CourseID, &q.Title, &q.Description, &q.Prompt,
		&q.CorrectAnswer, &q.IncorrectAnswers, &q.CreatedAt, &q.UpdatedAt)
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListByCourse retrieves all questions of a course.
func (r *QuestionRepository) ListByCourse(ctx context.Context, courseID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 FROM questions q WHERE q.course_id = $1
		 ORDER BY q.id ASC`, courseID,
	)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// ListByQuiz retrieves the questions associated with a quiz.
func (r *QuestionRepository) ListByQuiz(ctx context.Context, quizID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 FROM questions q
		 JOIN quiz_questions qq ON qq.question_id = q.id
		 WHERE qq.quiz_id = $1
		 ORDER BY q.id ASC`, quizID,
	)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// GetByID retrieves a question by ID.
func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	q := &model.Question{}
	row := r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions q WHERE q.id = $1`, id)
	if err := scanQuestion(row, q); err != nil {
		return nil, err
	}
	return q, nil
}

// GetCorrectAnswer retrieves only the answer key of a question.
func (r *QuestionRepository) GetCorrectAnswer(ctx context.Context, id int64) (string, error) {
	var answer string
	err := r.pool.QueryRow(ctx, `SELECT correct_answer FROM questions WHERE id = $1`, id).Scan(&answer)
	return answer, err
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (course_id, title, description, prompt, correct_answer, incorrect_answers)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		q.CourseID, q.Title, q.Description, q.Prompt, q.CorrectAnswer, q.IncorrectAnswers,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// Update modifies a question in place.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`UPDATE questions
		 SET title = $1, description = $2, prompt = $3, correct_answer = $4, incorrect_answers = $5, updated_at = NOW()
		 WHERE id = $6
		 RETURNING course_id, created_at, updated_at`,
		q.Title, q.Description, q.Prompt, q.CorrectAnswer, q.IncorrectAnswers, q.ID,
	).Scan(&q.CourseID, &q.CreatedAt, &q.UpdatedAt)
}

// Delete removes a question by ID.
func (r *QuestionRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}
