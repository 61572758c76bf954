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

// CourseHandler handles course management endpoints.
type CourseHandler struct {
	courseService *service.CourseService
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(courseService *service.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// ListCourses godoc
// GET /api/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	claims := middleware.GetClaims(c)
	courses, err := h.courseService.List(c.Request.Context(), claims.UserID)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}

// CreateCourse godoc
// POST /api/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req model.CourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	course, err := h.courseService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"course": course})
}

// GetCourse godoc
// GET /api/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	course, err := h.courseService.Authorize(c.Request.Context(), claims.UserID, courseID)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"course": course})
}

// UpdateCourse godoc
// PUT /api/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.CourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	course, err := h.courseService.Update(c.Request.Context(), claims.UserID, courseID, &req)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"course": course})
}

// DeleteCourse godoc
// DELETE /api/courses/:id
// Deletes the course with its questions, quizzes and attempts.
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.courseService.Delete(c.Request.Context(), claims.UserID, courseID); err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// SetLLMKey godoc
// PUT /api/courses/:id/llm-key
// Stores the course's own LLM API key, encrypted at rest. The key is never returned.
func (h *CourseHandler) SetLLMKey(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.CourseKeyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.courseService.SetLLMKey(c.Request.Context(), claims.UserID, courseID, req.APIKey); err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"hasLlmKey": true})
}

// ClearLLMKey godoc
// DELETE /api/courses/:id/llm-key
func (h *CourseHandler) ClearLLMKey(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.courseService.ClearLLMKey(c.Request.Context(), claims.UserID, courseID); err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"hasLlmKey": false})
}
