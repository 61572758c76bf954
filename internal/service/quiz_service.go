package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sensai/sensai-backend/internal/config"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/repository"
)

// QuizService handles quiz management and student access.
type QuizService struct {
	repo      *repository.QuizRepository
	questions *repository.QuestionRepository
	courses   *CourseService
	rdb       *redis.Client
	unlockTTL time.Duration
}

// NewQuizService creates a new QuizService.
func NewQuizService(repo *repository.QuizRepository, questions *repository.QuestionRepository, courses *CourseService, rdb *redis.Client, unlockTTL time.Duration) *QuizService {
	return &QuizService{
		repo:      repo,
		questions: questions,
		courses:   courses,
		rdb:       rdb,
		unlockTTL: unlockTTL,
	}
}

// ListByCourse retrieves the quizzes of an owned course.
func (s *QuizService) ListByCourse(ctx context.Context, instructorID, courseID int64) ([]model.Quiz, error) {
	if _, err := s.courses.Authorize(ctx, instructorID, courseID); err != nil {
		return nil, err
	}
	quizzes, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	if quizzes == nil {
		quizzes = []model.Quiz{}
	}
	return quizzes, nil
}

// Get retrieves a quiz the instructor owns through its course.
func (s *QuizService) Get(ctx context.Context, instructorID, quizID int64) (*model.Quiz, error) {
	quiz, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if _, err := s.courses.Authorize(ctx, instructorID, quiz.CourseID); err != nil {
		return nil, err
	}
	return quiz, nil
}

// Questions lists the full questions of an owned quiz, answer keys included.
func (s *QuizService) Questions(ctx context.Context, instructorID, quizID int64) ([]model.Question, error) {
	if _, err := s.Get(ctx, instructorID, quizID); err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list quiz questions: %w", err)
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

// Create adds a quiz to an owned course. Access codes are unique across quizzes.
func (s *QuizService) Create(ctx context.Context, instructorID, courseID int64, req *model.QuizRequest) (*model.Quiz, error) {
	if _, err := s.courses.Authorize(ctx, instructorID, courseID); err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		CourseID:   courseID,
		Title:      req.Title,
		Prompt:     req.Prompt,
		AccessCode: normalizeAccessCode(req.AccessCode),
	}
	if err := s.repo.Create(ctx, quiz); err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return nil, fmt.Errorf("access code %s: %w", quiz.AccessCode, ErrConflict)
		}
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

// Update edits an owned quiz.
func (s *QuizService) Update(ctx context.Context, instructorID, quizID int64, req *model.QuizRequest) (*model.Quiz, error) {
	quiz, err := s.Get(ctx, instructorID, quizID)
	if err != nil {
		return nil, err
	}

	quiz.Title = req.Title
	quiz.Prompt = req.Prompt
	quiz.AccessCode = normalizeAccessCode(req.AccessCode)
	if err := s.repo.Update(ctx, quiz); err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return nil, fmt.Errorf("access code %s: %w", quiz.AccessCode, ErrConflict)
		}
		return nil, fmt.Errorf("update quiz: %w", err)
	}
	return quiz, nil
}

// Delete removes an owned quiz together with its attempts.
func (s *QuizService) Delete(ctx context.Context, instructorID, quizID int64) error {
	if _, err := s.Get(ctx, instructorID, quizID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}

// AddQuestion puts a question of the same course into the quiz.
func (s *QuizService) AddQuestion(ctx context.Context, instructorID, quizID, questionID int64) error {
	quiz, err := s.Get(ctx, instructorID, quizID)
	if err != nil {
		return err
	}

	q, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if isNoRows(err) {
			return fmt.Errorf("question %d: %w", questionID, ErrNotFound)
		}
		return fmt.Errorf("get question: %w", err)
	}
	if q.CourseID != quiz.CourseID {
		return fmt.Errorf("question %d belongs to another course: %w", questionID, ErrInvalidInput)
	}

	if err := s.repo.AddQuestion(ctx, quizID, questionID); err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return fmt.Errorf("question %d already in quiz %d: %w", questionID, quizID, ErrConflict)
		}
		return fmt.Errorf("add quiz question: %w", err)
	}
	return nil
}

// RemoveQuestion takes a question out of the quiz. Past attempts are kept.
func (s *QuizService) RemoveQuestion(ctx context.Context, instructorID, quizID, questionID int64) error {
	if _, err := s.Get(ctx, instructorID, quizID); err != nil {
		return err
	}
	removed, err := s.repo.RemoveQuestion(ctx, quizID, questionID)
	if err != nil {
		return fmt.Errorf("remove quiz question: %w", err)
	}
	if !removed {
		return fmt.Errorf("question %d in quiz %d: %w", questionID, quizID, ErrNotFound)
	}
	return nil
}

// Unlock checks an access code and opens the matching quiz for the student.
func (s *QuizService) Unlock(ctx context.Context, studentID int64, code string) (*model.Quiz, error) {
	quiz, err := s.repo.GetByAccessCode(ctx, normalizeAccessCode(code))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrInvalidAccessCode
		}
		return nil, fmt.Errorf("get quiz by code: %w", err)
	}

	if err := s.rdb.Set(ctx, config.CacheKey.QuizUnlockKey(studentID, quiz.ID), "1", s.unlockTTL).Err(); err != nil {
		return nil, fmt.Errorf("store quiz unlock: %w", err)
	}

	quiz.AccessCode = ""
	return quiz, nil
}

// IsUnlocked reports whether the student entered the quiz's access code recently.
func (s *QuizService) IsUnlocked(ctx context.Context, studentID, quizID int64) (bool, error) {
	n, err := s.rdb.Exists(ctx, config.CacheKey.QuizUnlockKey(studentID, quizID)).Result()
	if err != nil {
		return false, fmt.Errorf("check quiz unlock: %w", err)
	}
	return n > 0, nil
}

// Take returns the answer-free paper of an unlocked quiz with shuffled options.
func (s *QuizService) Take(ctx context.Context, studentID, quizID int64) (*model.QuizPaper, error) {
	unlocked, err := s.IsUnlocked(ctx, studentID, quizID)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, ErrQuizLocked
	}

	quiz, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list quiz questions: %w", err)
	}

	paper := &model.QuizPaper{Quiz: *quiz, Questions: make([]model.StudentQuestion, 0, len(questions))}
	paper.Quiz.AccessCode = ""
	for _, q := range questions {
		paper.Questions = append(paper.Questions, model.StudentQuestion{
			ID:          q.ID,
			Title:       q.Title,
			Description: q.Description,
			Prompt:      q.Prompt,
			Options:     shuffleOptions(q.CorrectAnswer, q.Distractors(), rand.Shuffle),
		})
	}
	return paper, nil
}

// HasQuestion reports whether a question is part of a quiz.
func (s *QuizService) HasQuestion(ctx context.Context, quizID, questionID int64) (bool, error) {
	ok, err := s.repo.HasQuestion(ctx, quizID, questionID)
	if err != nil {
		return false, fmt.Errorf("check quiz question: %w", err)
	}
	return ok, nil
}

func (s *QuizService) load(ctx context.Context, quizID int64) (*model.Quiz, error) {
	quiz, err := s.repo.GetByID(ctx, quizID)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("quiz %d: %w", quizID, ErrNotFound)
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return quiz, nil
}

// shuffleOptions merges the correct answer into the distractors and shuffles
// them. An answer-only question yields no options, leaving it free-text.
func shuffleOptions(correct string, distractors []string, shuffle func(n int, swap func(i, j int))) []string {
	if len(distractors) == 0 {
		return []string{}
	}
	options := make([]string, 0, len(distractors)+1)
	options = append(options, correct)
	options = append(options, distractors...)
	shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options
}

func normalizeAccessCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
