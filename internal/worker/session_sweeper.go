package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSweepSchedule runs the sweep at the top of every hour.
const DefaultSweepSchedule = "0 * * * *"

const sweepTimeout = 30 * time.Second

// SessionPurger deletes expired sessions and reports how many were removed.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// SessionSweeper periodically removes expired session rows.
type SessionSweeper struct {
	purger   SessionPurger
	schedule string
	cron     *cron.Cron
	log      zerolog.Logger
}

// NewSessionSweeper creates a sweeper. An empty schedule means DefaultSweepSchedule.
func NewSessionSweeper(purger SessionPurger, schedule string, log zerolog.Logger) *SessionSweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &SessionSweeper{
		purger:   purger,
		schedule: schedule,
		cron:     cron.New(),
		log:      log.With().Str("component", "session_sweeper").Logger(),
	}
}

// Start registers the job and runs it until ctx is cancelled. Call in a goroutine.
func (s *SessionSweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.sweep(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Msg("Sweeper started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Sweeper stopped")
	return nil
}

func (s *SessionSweeper) sweep(parent context.Context) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, sweepTimeout)
	defer cancel()

	n, err := s.purger.PurgeExpiredSessions(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Purge expired sessions failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("count", n).Msg("Purged expired sessions")
	}
}
