package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sensai/sensai-backend/internal/config"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/repository"
)

// QuestionService handles question business logic and the answer-key cache.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	courses      *CourseService
	rdb          *redis.Client
	answerTTL    time.Duration
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository, courses *CourseService, rdb *redis.Client, answerTTL time.Duration) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		courses:      courses,
		rdb:          rdb,
		answerTTL:    answerTTL,
	}
}

// ListByCourse retrieves all questions of an owned course.
func (s *QuestionService) ListByCourse(ctx context.Context, instructorID, courseID int64) ([]model.Question, error) {
	if _, err := s.courses.Authorize(ctx, instructorID, courseID); err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

// Get retrieves a question the instructor owns through its course.
func (s *QuestionService) Get(ctx context.Context, instructorID, questionID int64) (*model.Question, error) {
	q, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("question %d: %w", questionID, ErrNotFound)
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	if _, err := s.courses.Authorize(ctx, instructorID, q.CourseID); err != nil {
		return nil, err
	}
	return q, nil
}

// Create adds a question to an owned course.
func (s *QuestionService) Create(ctx context.Context, instructorID, courseID int64, req *model.QuestionRequest) (*model.Question, error) {
	if _, err := s.courses.Authorize(ctx, instructorID, courseID); err != nil {
		return nil, err
	}

	q := &model.Question{CourseID: courseID}
	applyQuestionRequest(q, req)
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// Update edits a question and drops its cached answer key.
func (s *QuestionService) Update(ctx context.Context, instructorID, questionID int64, req *model.QuestionRequest) (*model.Question, error) {
	q, err := s.Get(ctx, instructorID, questionID)
	if err != nil {
		return nil, err
	}

	applyQuestionRequest(q, req)
	if err := s.questionRepo.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	s.invalidateAnswer(ctx, questionID)
	return q, nil
}

// Delete removes a question and drops its cached answer key.
func (s *QuestionService) Delete(ctx context.Context, instructorID, questionID int64) error {
	if _, err := s.Get(ctx, instructorID, questionID); err != nil {
		return err
	}
	if err := s.questionRepo.Delete(ctx, questionID); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	s.invalidateAnswer(ctx, questionID)
	return nil
}

// CorrectAnswer returns a question's answer key, reading through the Redis cache.
func (s *QuestionService) CorrectAnswer(ctx context.Context, questionID int64) (string, error) {
	key := config.CacheKey.QuestionAnswerKey(questionID)

	// Misses and Redis errors both fall back to PostgreSQL.
	if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
		return cached, nil
	}

	answer, err := s.questionRepo.GetCorrectAnswer(ctx, questionID)
	if err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("question %d: %w", questionID, ErrNotFound)
		}
		return "", fmt.Errorf("get correct answer: %w", err)
	}

	_ = s.rdb.Set(ctx, key, answer, s.answerTTL).Err()
	return answer, nil
}

func (s *QuestionService) invalidateAnswer(ctx context.Context, questionID int64) {
	_ = s.rdb.Del(ctx, config.CacheKey.QuestionAnswerKey(questionID)).Err()
}

func applyQuestionRequest(q *model.Question, req *model.QuestionRequest) {
	q.Title = req.Title
	q.Description = req.Description
	q.Prompt = req.Prompt
	q.CorrectAnswer = req.CorrectAnswer
	q.IncorrectAnswers = model.JoinAnswers(req.IncorrectAnswers)
}
