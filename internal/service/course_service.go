package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/repository"
	"github.com/sensai/sensai-backend/internal/secret"
)

// CourseService handles course business logic and the per-course LLM key.
type CourseService struct {
	repo   *repository.CourseRepository
	sealer *secret.Sealer
}

// NewCourseService creates a new CourseService. A nil sealer disables per-course keys.
func NewCourseService(repo *repository.CourseRepository, sealer *secret.Sealer) *CourseService {
	return &CourseService{repo: repo, sealer: sealer}
}

// List retrieves the instructor's courses.
func (s *CourseService) List(ctx context.Context, instructorID int64) ([]model.Course, error) {
	courses, err := s.repo.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}

// Authorize loads a course and checks that the instructor owns it.
func (s *CourseService) Authorize(ctx context.Context, instructorID, courseID int64) (*model.Course, error) {
	course, err := s.repo.GetByID(ctx, courseID)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("course %d: %w", courseID, ErrNotFound)
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course.InstructorID != instructorID {
		return nil, ErrForbidden
	}
	return course, nil
}

// Create adds a course owned by the instructor.
func (s *CourseService) Create(ctx context.Context, instructorID int64, req *model.CourseRequest) (*model.Course, error) {
	course := &model.Course{
		Name:         req.Name,
		Description:  req.Description,
		InstructorID: instructorID,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return course, nil
}

// Update renames or re-describes an owned course.
func (s *CourseService) Update(ctx context.Context, instructorID, courseID int64, req *model.CourseRequest) (*model.Course, error) {
	course, err := s.Authorize(ctx, instructorID, courseID)
	if err != nil {
		return nil, err
	}
	course.Name = req.Name
	course.Description = req.Description
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	return course, nil
}

// Delete removes an owned course with everything under it.
func (s *CourseService) Delete(ctx context.Context, instructorID, courseID int64) error {
	if _, err := s.Authorize(ctx, instructorID, courseID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, courseID)
}

// SetLLMKey seals and stores the course's own LLM API key.
func (s *CourseService) SetLLMKey(ctx context.Context, instructorID, courseID int64, apiKey string) error {
	if _, err := s.Authorize(ctx, instructorID, courseID); err != nil {
		return err
	}
	sealed, err := s.sealer.Seal([]byte(apiKey), secret.CourseAAD(courseID))
	if err != nil {
		return fmt.Errorf("seal course key: %w", err)
	}
	return s.repo.SetLLMKey(ctx, courseID, sealed)
}

// ClearLLMKey removes the course key so the server default is used again.
func (s *CourseService) ClearLLMKey(ctx context.Context, instructorID, courseID int64) error {
	if _, err := s.Authorize(ctx, instructorID, courseID); err != nil {
		return err
	}
	return s.repo.SetLLMKey(ctx, courseID, nil)
}

// LLMKeyForQuiz returns the decrypted key of the course owning the quiz, or ""
// when the course has none.
func (s *CourseService) LLMKeyForQuiz(ctx context.Context, quizID int64) (string, error) {
	courseID, sealed, err := s.repo.GetLLMKeyForQuiz(ctx, quizID)
	if err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("quiz %d: %w", quizID, ErrNotFound)
		}
		return "", fmt.Errorf("get course key: %w", err)
	}
	if len(sealed) == 0 {
		return "", nil
	}

	plain, err := s.sealer.Open(sealed, secret.CourseAAD(courseID))
	if err != nil {
		if errors.Is(err, secret.ErrSealerUnavailable) {
			return "", nil
		}
		return "", fmt.Errorf("open course key: %w", err)
	}
	return string(plain), nil
}
