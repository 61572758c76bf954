package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// ObservedProvider logs every call and records its latency.
type ObservedProvider struct {
	inner   Provider
	name    string
	log     zerolog.Logger
	latency *prometheus.HistogramVec
}

// WithObservability wraps p. latency must carry the labels provider, purpose, status;
// nil skips metrics.
func WithObservability(p Provider, name string, log zerolog.Logger, latency *prometheus.HistogramVec) Provider {
	return &ObservedProvider{
		inner:   p,
		name:    name,
		log:     log.With().Str("component", "llm").Str("provider", name).Logger(),
		latency: latency,
	}
}

func (o *ObservedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	purpose := PurposeFrom(ctx)
	start := time.Now()

	resp, err := o.inner.Generate(ctx, req)

	elapsed := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	if o.latency != nil {
		o.latency.WithLabelValues(o.name, purpose, status).Observe(elapsed.Seconds())
	}

	if err != nil {
		o.log.Warn().Err(err).
			Str("purpose", purpose).
			Str("model", o.inner.ModelID()).
			Dur("latency", elapsed).
			Msg("LLM call failed")
		return nil, err
	}

	o.log.Debug().
		Str("purpose", purpose).
		Str("model", resp.Model).
		Int("input_tokens", resp.Usage.InputTokens).
		Int("output_tokens", resp.Usage.OutputTokens).
		Dur("latency", elapsed).
		Msg("LLM call completed")
	return resp, nil
}

func (o *ObservedProvider) ModelID() string {
	return o.inner.ModelID()
}
