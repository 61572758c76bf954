package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sensai/sensai-backend/internal/llm"
	"github.com/sensai/sensai-backend/internal/response"
	"github.com/sensai/sensai-backend/internal/secret"
	"github.com/sensai/sensai-backend/internal/service"
)

// failWithError maps a service error onto the HTTP status and error code.
// Unknown errors are attached to the context for the request logger and
// reported as INTERNAL_ERROR.
func failWithError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		_ = c.Error(err)
	}
	response.Fail(c, status, code)
}

func errorStatus(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, llm.ErrNoAPIKey), errors.Is(err, secret.ErrSealerUnavailable):
		return http.StatusServiceUnavailable, response.ErrLLMNotSet
	case llm.IsUpstream(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, response.ErrLLMUnavailable
	}

	code := service.ErrorCode(err)
	switch code {
	case response.ErrInvalidInput:
		return http.StatusBadRequest, code
	case response.ErrNotFound:
		return http.StatusNotFound, code
	case response.ErrForbidden, response.ErrQuizLocked:
		return http.StatusForbidden, code
	case response.ErrConflict:
		return http.StatusConflict, code
	case response.ErrInvalidCredentials:
		return http.StatusUnauthorized, code
	case response.ErrInvalidAccessCode:
		return http.StatusNotFound, code
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// parseID reads a positive int64 path parameter.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
