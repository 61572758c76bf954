package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LLM_MAX_ATTEMPTS", "")
	t.Setenv("SESSION_TTL_HOURS", "")

	cfg := Load()

	assert.Equal(t, 1, cfg.LLM.MaxAttempts, "classifier calls are not retried by default")
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "sensai_session", cfg.SessionCookieName)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_TIMEOUT_SECONDS", "5")
	t.Setenv("LLM_RATE_PER_SEC", "0.5")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("MAX_DB_CONNS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.InDelta(t, 0.5, cfg.LLM.RatePerSec, 1e-9)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, int32(10), cfg.MaxDBConns, "invalid ints fall back to the default")
}

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
	assert.Equal(t,
		[]string{"http://a.test", "http://b.test"},
		parseOrigins(" http://a.test , ,http://b.test"),
	)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "question:7:answer", CacheKey.QuestionAnswerKey(7))
	assert.Equal(t, "student:1:quiz:2:question:3:tutor", CacheKey.TutorTranscriptKey(1, 2, 3))
	assert.Equal(t, "quiz:9:attempts", CacheKey.QuizAttemptChannel(9))
	assert.Equal(t, "chat_persist_queue", WorkerKey.PersistChatQueue)
}
