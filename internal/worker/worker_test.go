package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChatLog(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		raw := `{"studentId":3,"quizId":4,"questionId":5,"batchId":"7c9e6679-7425-40de-944b-e07fc1f90ae7",` +
			`"turns":[{"role":"student","content":"why?"},{"role":"tutor","content":"because"}],` +
			`"loggedAt":"2026-01-02T03:04:05Z"}`
		log, err := decodeChatLog(raw)
		require.NoError(t, err)
		assert.Equal(t, int64(3), log.StudentID)
		assert.Equal(t, int64(5), log.QuestionID)
		assert.Len(t, log.Turns, 2)
		assert.Equal(t, 2026, log.LoggedAt.Year())
	})

	t.Run("missing timestamp defaults to now", func(t *testing.T) {
		log, err := decodeChatLog(`{"studentId":1,"quizId":1,"questionId":1,"turns":[{"role":"student","content":"hi"}]}`)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), log.LoggedAt, time.Minute)
	})

	for name, raw := range map[string]string{
		"not json":       `{{`,
		"no identifiers": `{"turns":[{"role":"student","content":"hi"}]}`,
		"no turns":       `{"studentId":1,"quizId":1,"questionId":1,"turns":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeChatLog(raw)
			assert.Error(t, err)
		})
	}
}

type fakePurger struct {
	n     int64
	err   error
	calls int
}

func (f *fakePurger) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	f.calls++
	return f.n, f.err
}

func TestSessionSweeper_Sweep(t *testing.T) {
	log := zerolog.New(io.Discard)

	p := &fakePurger{n: 4}
	s := NewSessionSweeper(p, "", log)
	assert.Equal(t, DefaultSweepSchedule, s.schedule)
	s.sweep(context.Background())
	assert.Equal(t, 1, p.calls)

	failing := &fakePurger{err: errors.New("db down")}
	NewSessionSweeper(failing, "@every 1m", log).sweep(context.Background())
	assert.Equal(t, 1, failing.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	skipped := &fakePurger{}
	NewSessionSweeper(skipped, "", log).sweep(ctx)
	assert.Zero(t, skipped.calls)
}

func TestSessionSweeper_InvalidSchedule(t *testing.T) {
	s := NewSessionSweeper(&fakePurger{}, "not a schedule", zerolog.New(io.Discard))
	assert.Error(t, s.Start(context.Background()))
}
