package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/sensai/sensai-backend/internal/middleware"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/service"
	"github.com/sensai/sensai-backend/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type memStore struct {
	mu       sync.Mutex
	attempts []model.Attempt
}

func (m *memStore) Insert(_ context.Context, a *model.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = int64(len(m.attempts) + 1)
	m.attempts = append(m.attempts, *a)
	return nil
}

func (m *memStore) FindLatest(_ context.Context, studentID, questionID, quizID int64) (*model.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.attempts) - 1; i >= 0; i-- {
		a := m.attempts[i]
		if a.StudentID == studentID && a.QuestionID == questionID && a.QuizID == quizID {
			return &a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) Touch(_ context.Context, id int64, batchID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[id-1].BatchID = batchID
	m.attempts[id-1].AttemptedAt = at
	return nil
}

func (m *memStore) ListByStudent(_ context.Context, studentID int64, _ *int64, limit, offset int) ([]model.Attempt, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Attempt
	for _, a := range m.attempts {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	total := len(out)
	if offset > total {
		offset = total
	}
	return out[offset:min(offset+limit, total)], total, nil
}

type staticQuizzes map[int64][]int64

func (s staticQuizzes) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := s[id]
	return ok, nil
}

func (s staticQuizzes) HasQuestion(_ context.Context, quizID, questionID int64) (bool, error) {
	return slices.Contains(s[quizID], questionID), nil
}

type staticAnswers map[int64]string

func (s staticAnswers) CorrectAnswer(_ context.Context, id int64) (string, error) {
	a, ok := s[id]
	if !ok {
		return "", fmt.Errorf("question %d: %w", id, service.ErrNotFound)
	}
	return a, nil
}

type staticUnanswered struct{}

func (staticUnanswered) UnansweredID(context.Context) (*int64, error) {
	id := int64(1)
	return &id, nil
}

const testStudentID = 10

func newAttemptRouter(store *memStore) *gin.Engine {
	svc := service.NewAttemptService(service.AttemptDeps{
		Store:      store,
		Quizzes:    staticQuizzes{5: {1, 2}, 7: {3}},
		Answers:    staticAnswers{1: "42", 2: "Paris", 3: "blue"},
		Unanswered: staticUnanswered{},
	}, zerolog.Nop())
	h := NewAttemptHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: testStudentID, Role: model.RoleStudent})
		c.Next()
	})
	r.POST("/api/attempt/submit-quiz", h.SubmitQuiz)
	r.POST("/api/attempt/submit", h.Submit)
	r.GET("/api/attempt/history", h.History)
	return r
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
	Pagination *struct {
		TotalItems int `json:"total_items"`
	} `json:"pagination"`
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestSubmitQuiz_ScoresAndFeedback(t *testing.T) {
	store := &memStore{}
	r := newAttemptRouter(store)

	w, env := do(t, r, http.MethodPost, "/api/attempt/submit-quiz", `{
		"quizId": 5,
		"questionArray": [
			{"questionId": 1, "givenAns": " 42.0 ", "numMsgs": 2, "selfConfidence": "high"},
			{"questionId": 2, "givenAns": "lyon"},
			{"questionId": 2, "givenAns": "   "}
		]
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	var res model.QuizSubmissionResult
	require.NoError(t, json.Unmarshal(env.Data, &res))

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.TotalQuestions)
	assert.Equal(t, 1, res.Score)
	require.Len(t, res.QuestionFeedback, 3)
	assert.True(t, res.QuestionFeedback[0].IsCorrect)
	assert.False(t, res.QuestionFeedback[1].IsCorrect)
	assert.Nil(t, res.QuestionFeedback[2].GivenAnswer)
	assert.Equal(t, int64(1), *res.QuestionFeedback[2].MistakeTypeID)

	require.Len(t, store.attempts, 3)
	for _, a := range store.attempts {
		assert.Equal(t, res.BatchID, a.BatchID)
		assert.Equal(t, int64(testStudentID), a.StudentID)
	}
}

func TestSubmitQuiz_PartialFailure(t *testing.T) {
	r := newAttemptRouter(&memStore{})

	w, env := do(t, r, http.MethodPost, "/api/attempt/submit-quiz", `{
		"quizId": 5,
		"questionArray": [{"questionId": 99, "givenAns": "x"}, {"questionId": 1, "givenAns": "42"}]
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	var res model.QuizSubmissionResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.False(t, res.Success)
	assert.Equal(t, "NOT_FOUND", res.QuestionFeedback[0].Error)
	assert.True(t, res.QuestionFeedback[1].IsCorrect)
	assert.Equal(t, 1, res.Score)
}

func TestSubmitQuiz_UnknownQuiz(t *testing.T) {
	r := newAttemptRouter(&memStore{})

	w, env := do(t, r, http.MethodPost, "/api/attempt/submit-quiz",
		`{"quizId": 6, "questionArray": [{"questionId": 1, "givenAns": "42"}]}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestSubmitQuiz_ValidationErrors(t *testing.T) {
	r := newAttemptRouter(&memStore{})

	w, env := do(t, r, http.MethodPost, "/api/attempt/submit-quiz",
		`{"quizId": 5, "questionArray": [{"questionId": 1, "selfConfidence": "very"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "questionArray[0].selfConfidence")

	w, env = do(t, r, http.MethodPost, "/api/attempt/submit-quiz", `{"quizId": 5, "questionArray": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestSubmit_SingleAndRecheck(t *testing.T) {
	store := &memStore{}
	r := newAttemptRouter(store)

	w, env := do(t, r, http.MethodPost, "/api/attempt/submit", `{"quizId": 5, "questionId": 2, "givenAns": "paris"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var first service.AttemptOutcome
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.True(t, first.IsCorrect)
	assert.False(t, first.Touched)

	batch := uuid.New()
	w, env = do(t, r, http.MethodPost, "/api/attempt/submit",
		fmt.Sprintf(`{"quizId": 5, "questionId": 2, "givenAns": "paris", "hasCheckedAnswer": true, "batchId": %q}`, batch))
	require.Equal(t, http.StatusOK, w.Code)
	var second service.AttemptOutcome
	require.NoError(t, json.Unmarshal(env.Data, &second))

	assert.True(t, second.Touched)
	assert.Equal(t, first.AttemptID, second.AttemptID)
	assert.Equal(t, batch, second.BatchID)
	assert.Len(t, store.attempts, 1)
}

func TestSubmit_QuestionFromAnotherQuiz(t *testing.T) {
	store := &memStore{}
	r := newAttemptRouter(store)

	w, env := do(t, r, http.MethodPost, "/api/attempt/submit", `{"quizId": 5, "questionId": 3, "givenAns": "blue"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.Empty(t, store.attempts)
}

func TestSubmit_MissingQuestionID(t *testing.T) {
	r := newAttemptRouter(&memStore{})

	w, env := do(t, r, http.MethodPost, "/api/attempt/submit", `{"quizId": 5, "givenAns": "42"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestHistory_Paginates(t *testing.T) {
	store := &memStore{}
	r := newAttemptRouter(store)
	for i := 0; i < 3; i++ {
		do(t, r, http.MethodPost, "/api/attempt/submit", `{"quizId": 5, "questionId": 1, "givenAns": "1"}`)
	}

	w, env := do(t, r, http.MethodGet, "/api/attempt/history?page=2&perPage=2", "")

	require.Equal(t, http.StatusOK, w.Code)
	var items []model.Attempt
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 1)
	assert.Equal(t, 3, env.Pagination.TotalItems)

	w, _ = do(t, r, http.MethodGet, "/api/attempt/history?perPage=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
