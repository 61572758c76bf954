package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/repository"
)

const monitorSnapshotSize = 50

// MonitorService feeds the live instructor view of a quiz.
type MonitorService struct {
	monitorRepo *repository.MonitorRepository
	quizzes     *QuizService
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitorRepo *repository.MonitorRepository, quizzes *QuizService) *MonitorService {
	return &MonitorService{monitorRepo: monitorRepo, quizzes: quizzes}
}

// PublishAttempt broadcasts a recorded attempt to the quiz's watchers.
func (s *MonitorService) PublishAttempt(ctx context.Context, ev model.AttemptEvent) error {
	return s.monitorRepo.Publish(ctx, ev)
}

// Authorize checks that the instructor may watch the quiz.
func (s *MonitorService) Authorize(ctx context.Context, instructorID, quizID int64) error {
	_, err := s.quizzes.Get(ctx, instructorID, quizID)
	return err
}

// Subscribe opens the live feed of a quiz. The caller must Close the subscription.
func (s *MonitorService) Subscribe(ctx context.Context, quizID int64) *redis.PubSub {
	return s.monitorRepo.Subscribe(ctx, quizID)
}

// Snapshot returns the most recent attempts of a quiz, newest first.
func (s *MonitorService) Snapshot(ctx context.Context, quizID int64) ([]model.AttemptEvent, error) {
	events, err := s.monitorRepo.RecentAttempts(ctx, quizID, monitorSnapshotSize)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	return events, nil
}
