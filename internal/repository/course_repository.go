package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sensai/sensai-backend/internal/model"
)

// CourseRepository handles course data access.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

const courseColumns = `id, name, description, instructor_id, llm_api_key_enc IS NOT NULL, created_at, updated_at`

// ListByInstructor retrieves all courses owned by an instructor.
func (r *CourseRepository) ListByInstructor(ctx context.Context, instructorID int64) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+`
		 FROM courses WHERE instructor_id = $1
		 ORDER BY created_at DESC`, instructorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.InstructorID, &c.HasLLMKey, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// GetByID retrieves a course by ID.
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	c := &model.Course{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.InstructorID, &c.HasLLMKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, c *model.Course) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO courses (name, description, instructor_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Description, c.InstructorID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// Update modifies a course's name and description.
func (r *CourseRepository) Update(ctx context.Context, c *model.Course) error {
	return r.pool.QueryRow(ctx,
		`UPDATE courses SET name = $1, description = $2, updated_at = NOW()
		 WHERE id = $3
		 RETURNING updated_at`,
		c.Name, c.Description, c.ID,
	).Scan(&c.UpdatedAt)
}

// Delete removes a course and, by cascade, its questions, quizzes and attempts.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	return err
}

// SetLLMKey stores the sealed API key. A nil key clears it.
func (r *CourseRepository) SetLLMKey(ctx context.Context, id int64, sealed []byte) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE courses SET llm_api_key_enc = $1, updated_at = NOW() WHERE id = $2`,
		sealed, id,
	)
	return err
}

// GetLLMKey returns the sealed API key, or nil when the course has none.
func (r *CourseRepository) GetLLMKey(ctx context.Context, id int64) ([]byte, error) {
	var sealed []byte
	err := r.pool.QueryRow(ctx, `SELECT llm_api_key_enc FROM courses WHERE id = $1`, id).Scan(&sealed)
	return sealed, err
}

// GetLLMKeyForQuiz returns the sealed API key of the course owning a quiz.
func (r *CourseRepository) GetLLMKeyForQuiz(ctx context.Context, quizID int64) (courseID int64, sealed []byte, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT c.id, c.llm_api_key_enc
		 FROM quizzes q JOIN courses c ON c.id = q.course_id
		 WHERE q.id = $1`, quizID,
	).Scan(&courseID, &sealed)
	return
}
