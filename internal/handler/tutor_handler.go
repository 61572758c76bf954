package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sensai/sensai-backend/internal/middleware"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/response"
	"github.com/sensai/sensai-backend/internal/service"
	"github.com/sensai/sensai-backend/internal/validator"
)

// TutorHandler exposes the AI tutor over REST.
type TutorHandler struct {
	tutorService *service.TutorService
}

// NewTutorHandler creates a new TutorHandler.
func NewTutorHandler(tutorService *service.TutorService) *TutorHandler {
	return &TutorHandler{tutorService: tutorService}
}

type tutorHistoryQuery struct {
	QuizID     int64 `form:"quizId" binding:"required,gt=0"`
	QuestionID int64 `form:"questionId" binding:"required,gt=0"`
}

// Chat godoc
// POST /api/tutor/chat
// Sends one message to the tutor about a question of an unlocked quiz.
func (h *TutorHandler) Chat(c *gin.Context) {
	var req model.TutorChatRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	reply, err := h.tutorService.Chat(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reply": reply})
}

// History godoc
// GET /api/tutor/history?quizId=&questionId=
func (h *TutorHandler) History(c *gin.Context) {
	var q tutorHistoryQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	turns, err := h.tutorService.History(c.Request.Context(), claims.UserID, q.QuizID, q.QuestionID)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"messages": turns})
}
