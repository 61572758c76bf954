package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sensai/sensai-backend/internal/middleware"
	"github.com/sensai/sensai-backend/internal/response"
	"github.com/sensai/sensai-backend/internal/service"
)

// AnalyticsHandler serves the instructor analytics page.
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GetQuizAnalytics godoc
// GET /api/analytics/quizzes/:id
// Summary, per-question correctness, mistake distribution, confidence and sessions.
func (h *AnalyticsHandler) GetQuizAnalytics(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	data, err := h.analyticsService.GetQuizAnalytics(c.Request.Context(), claims.UserID, quizID)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, data)
}
