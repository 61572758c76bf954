package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/repository"
)

const analyticsSessionLimit = 50

// AnalyticsService builds the instructor analytics page of a quiz.
type AnalyticsService struct {
	repo    *repository.AnalyticsRepository
	quizzes *QuizService
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(repo *repository.AnalyticsRepository, quizzes *QuizService) *AnalyticsService {
	return &AnalyticsService{repo: repo, quizzes: quizzes}
}

// GetQuizAnalytics fetches every section of the page in parallel. The quiz
// must belong to one of the instructor's courses.
func (s *AnalyticsService) GetQuizAnalytics(ctx context.Context, instructorID, quizID int64) (*model.QuizAnalytics, error) {
	if _, err := s.quizzes.Get(ctx, instructorID, quizID); err != nil {
		return nil, err
	}

	var (
		summary    *model.QuizSummary
		questions  []model.QuestionStat
		mistakes   []model.MistakeStat
		confidence []model.ConfidenceStat
		sessions   []model.QuizSession
		errs       [5]error
		wg         sync.WaitGroup
	)

	run := func(i int, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fn()
		}()
	}

	run(0, func() (err error) {
		summary, err = s.repo.GetSummary(ctx, quizID)
		return
	})
	run(1, func() (err error) {
		questions, err = s.repo.GetQuestionStats(ctx, quizID)
		return
	})
	run(2, func() (err error) {
		mistakes, err = s.repo.GetMistakeStats(ctx, quizID)
		return
	})
	run(3, func() (err error) {
		confidence, err = s.repo.GetConfidenceStats(ctx, quizID)
		return
	})
	run(4, func() (err error) {
		sessions, err = s.repo.GetSessions(ctx, quizID, analyticsSessionLimit)
		return
	})

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("quiz analytics: %w", err)
		}
	}

	return &model.QuizAnalytics{
		Summary:    *summary,
		Questions:  orEmpty(questions),
		Mistakes:   orEmpty(mistakes),
		Confidence: orEmpty(confidence),
		Sessions:   orEmpty(sessions),
	}, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
