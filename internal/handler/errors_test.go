package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/sensai/sensai-backend/internal/llm"
	"github.com/sensai/sensai-backend/internal/response"
	"github.com/sensai/sensai-backend/internal/secret"
	"github.com/sensai/sensai-backend/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   response.ErrCode
	}{
		{"invalid input", fmt.Errorf("x: %w", service.ErrInvalidInput), http.StatusBadRequest, response.ErrInvalidInput},
		{"not found", fmt.Errorf("x: %w", service.ErrNotFound), http.StatusNotFound, response.ErrNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},
		{"locked", service.ErrQuizLocked, http.StatusForbidden, response.ErrQuizLocked},
		{"conflict", fmt.Errorf("x: %w", service.ErrConflict), http.StatusConflict, response.ErrConflict},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
		{"access code", service.ErrInvalidAccessCode, http.StatusNotFound, response.ErrInvalidAccessCode},
		{"llm down", fmt.Errorf("tutor reply: %w", &llm.ErrProviderUnavailable{}), http.StatusBadGateway, response.ErrLLMUnavailable},
		{"llm rate limit", &llm.ErrRateLimit{RetryAfter: time.Second, Err: errors.New("429")}, http.StatusBadGateway, response.ErrLLMUnavailable},
		{"llm timeout", fmt.Errorf("tutor reply: %w", context.DeadlineExceeded), http.StatusBadGateway, response.ErrLLMUnavailable},
		{"no key", llm.ErrNoAPIKey, http.StatusServiceUnavailable, response.ErrLLMNotSet},
		{"no sealer", fmt.Errorf("seal: %w", secret.ErrSealerUnavailable), http.StatusServiceUnavailable, response.ErrLLMNotSet},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0m 5s", formatDuration(5*time.Second))
	assert.Equal(t, "2h 3m 4s", formatDuration(2*time.Hour+3*time.Minute+4*time.Second))
	assert.Equal(t, "1d 1h 0m 0s", formatDuration(25*time.Hour))
}
