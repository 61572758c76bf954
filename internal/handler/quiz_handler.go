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

// QuizHandler handles quiz management and student quiz access.
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// ─── Instructor ─────────────────────────────────────────────────────────────

// ListQuizzes godoc
// GET /api/courses/:id/quizzes
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	quizzes, err := h.quizService.ListByCourse(c.Request.Context(), claims.UserID, courseID)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

// CreateQuiz godoc
// POST /api/courses/:id/quizzes
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.QuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	quiz, err := h.quizService.Create(c.Request.Context(), claims.UserID, courseID, &req)
	if err != nil {
		h.failQuizWrite(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"quiz": quiz})
}

// GetQuiz godoc
// GET /api/quizzes/:id
// Returns the quiz with its full questions.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	quiz, err := h.quizService.Get(c.Request.Context(), claims.UserID, quizID)
	if err != nil {
		failWithError(c, err)
		return
	}
	questions, err := h.quizService.Questions(c.Request.Context(), claims.UserID, quizID)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": quiz, "questions": questions})
}

// UpdateQuiz godoc
// PUT /api/quizzes/:id
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.QuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	quiz, err := h.quizService.Update(c.Request.Context(), claims.UserID, quizID, &req)
	if err != nil {
		h.failQuizWrite(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// DeleteQuiz godoc
// DELETE /api/quizzes/:id
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.quizService.Delete(c.Request.Context(), claims.UserID, quizID); err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// AddQuestion godoc
// POST /api/quizzes/:id/questions
// Puts a question of the same course into the quiz. 409 if it is already there.
func (h *QuizHandler) AddQuestion(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.AddQuizQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.quizService.AddQuestion(c.Request.Context(), claims.UserID, quizID, req.QuestionID); err != nil {
		if service.ErrorCode(err) == response.ErrConflict {
			response.Fail(c, http.StatusConflict, response.ErrDuplicateMember)
			return
		}
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"quizId": quizID, "questionId": req.QuestionID})
}

// RemoveQuestion godoc
// DELETE /api/quizzes/:id/questions/:questionId
func (h *QuizHandler) RemoveQuestion(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}
	questionID, ok := parseID(c, "questionId")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.quizService.RemoveQuestion(c.Request.Context(), claims.UserID, quizID, questionID); err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

func (h *QuizHandler) failQuizWrite(c *gin.Context, err error) {
	if service.ErrorCode(err) == response.ErrConflict {
		response.Fail(c, http.StatusConflict, response.ErrAccessCodeTaken)
		return
	}
	failWithError(c, err)
}

// ─── Student ────────────────────────────────────────────────────────────────

// Unlock godoc
// POST /api/quizzes/unlock
// Opens the quiz matching the access code for the current student.
func (h *QuizHandler) Unlock(c *gin.Context) {
	var req model.UnlockQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	quiz, err := h.quizService.Unlock(c.Request.Context(), claims.UserID, req.AccessCode)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// Take godoc
// GET /api/quizzes/:id/take
// Returns the unlocked quiz's questions without answers, options shuffled.
func (h *QuizHandler) Take(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	paper, err := h.quizService.Take(c.Request.Context(), claims.UserID, quizID)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, paper)
}
