package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/sensai/sensai-backend/internal/config"
	"golang.org/x/time/rate"
)

// ErrNoAPIKey is returned when neither the course nor the server has a key configured.
var ErrNoAPIKey = errors.New("no LLM API key configured")

// Factory builds fully wrapped providers from the server configuration.
// All providers it returns share one rate limiter.
type Factory struct {
	cfg     config.LLMConfig
	limiter *rate.Limiter
	log     zerolog.Logger
	latency *prometheus.HistogramVec
	mock    *MockProvider
}

// NewFactory creates a provider factory. latency may be nil.
func NewFactory(cfg config.LLMConfig, log zerolog.Logger, latency *prometheus.HistogramVec) *Factory {
	f := &Factory{
		cfg:     cfg,
		limiter: NewLimiter(cfg.RatePerSec, cfg.Burst),
		log:     log,
		latency: latency,
	}
	if cfg.Provider == "mock" {
		f.mock = NewMockProvider()
		f.mock.SetFallback(MockResponse{
			Content: json.RawMessage(`{"mistake_type_id":null,"reasoning":"mock provider"}`),
		})
	}
	return f
}

// Default returns the provider backed by the server-wide API key.
func (f *Factory) Default(ctx context.Context) (Provider, error) {
	return f.WithAPIKey(ctx, f.cfg.APIKey)
}

// WithAPIKey returns a provider authenticated with key, used for courses that
// bring their own key.
func (f *Factory) WithAPIKey(ctx context.Context, key string) (Provider, error) {
	base, err := f.base(ctx, key)
	if err != nil {
		return nil, err
	}

	var p Provider = WithObservability(base, f.cfg.Provider, f.log, f.latency)
	p = WithRateLimit(p, f.limiter)
	p = WithRetry(p, RetryConfig{
		MaxAttempts: f.cfg.MaxAttempts,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2,
	})
	return p, nil
}

// Timeout is the per-call deadline callers apply around Generate.
func (f *Factory) Timeout() time.Duration {
	return f.cfg.Timeout
}

func (f *Factory) base(ctx context.Context, key string) (Provider, error) {
	if f.cfg.Provider == "mock" {
		return f.mock, nil
	}
	if key == "" {
		return nil, ErrNoAPIKey
	}

	switch f.cfg.Provider {
	case "openai":
		return NewOpenAIProvider(key, f.cfg.Model, f.cfg.BaseURL)
	case "anthropic":
		return NewAnthropicProvider(key, f.cfg.Model)
	case "gemini":
		return NewGeminiProvider(ctx, key, f.cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", f.cfg.Provider)
	}
}
