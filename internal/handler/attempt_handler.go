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

// AttemptHandler handles quiz submissions from students.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

type historyQuery struct {
	QuizID  *int64 `form:"quizId" binding:"omitempty,gt=0"`
	Page    int    `form:"page" binding:"omitempty,min=1"`
	PerPage int    `form:"perPage" binding:"omitempty,min=1,max=100"`
}

// SubmitQuiz godoc
// POST /api/attempt/submit-quiz
// Grades every question of a quiz submission under one batch and returns
// per-question feedback. Items that fail are reported individually.
func (h *AttemptHandler) SubmitQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.SubmitQuizAttempt(c.Request.Context(), claims.UserID, req.QuizID, req.QuestionArray)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Submit godoc
// POST /api/attempt/submit
// Records a single question attempt, e.g. when the student checks one answer.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	in := service.RecordAttemptInput{
		StudentID:    claims.UserID,
		QuestionID:   req.QuestionID,
		QuizID:       req.QuizID,
		GivenAnswer:  req.GivenAns,
		Transcript:   req.ChatHistory,
		MessageCount: req.NumMsgs,
		Confidence:   req.SelfConfidence,
		IsRecheck:    req.HasCheckedAnswer,
	}
	if req.BatchID != nil {
		in.BatchID = *req.BatchID
	}

	out, err := h.attemptService.RecordAttempt(c.Request.Context(), in)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, out)
}

// History godoc
// GET /api/attempt/history?quizId=&page=&perPage=
// Lists the student's own attempts, newest first.
func (h *AttemptHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var q historyQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempts, pagination, err := h.attemptService.ListHistory(c.Request.Context(), claims.UserID, q.QuizID, q.Page, q.PerPage)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, attempts, pagination)
}
