package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sensai/sensai-backend/internal/middleware"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/response"
	"github.com/sensai/sensai-backend/internal/service"
	ws "github.com/sensai/sensai-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams tutor chat over WebSocket.
type WSHandler struct {
	tutorService *service.TutorService
	quizService  *service.QuizService
	log          zerolog.Logger
	upgrader     websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(tutorService *service.TutorService, quizService *service.QuizService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		tutorService: tutorService,
		quizService:  quizService,
		log:          log.With().Str("component", "ws_handler").Logger(),
		upgrader:     buildUpgrader(allowedOrigins),
	}
}

// TutorStream godoc
// WS /ws/tutor?quizId=&questionId=
// Keeps one tutor conversation open for a question of an unlocked quiz.
func (h *WSHandler) TutorStream(c *gin.Context) {
	claims := middleware.GetClaims(c)

	quizID, err := strconv.ParseInt(c.Query("quizId"), 10, 64)
	if err != nil || quizID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	questionID, err := strconv.ParseInt(c.Query("questionId"), 10, 64)
	if err != nil || questionID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Reject locked quizzes before the upgrade so the client gets a proper status.
	unlocked, err := h.quizService.IsUnlocked(c.Request.Context(), claims.UserID, quizID)
	if err != nil {
		failWithError(c, err)
		return
	}
	if !unlocked {
		response.Fail(c, http.StatusForbidden, response.ErrQuizLocked)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	ws.Prepare(conn)

	wsLog := h.log.With().
		Int64("student_id", claims.UserID).
		Int64("quiz_id", quizID).
		Int64("question_id", questionID).
		Logger()
	wsLog.Info().Msg("Student connected to tutor")

	_ = ws.WriteTyped(conn, ws.ReadyResponse{Event: ws.EventReady, QuizID: quizID, QuestionID: questionID})

	for {
		action, raw, err := ws.ReadMessage(conn)
		if err != nil {
			if raw != nil {
				_ = ws.WriteError(conn, string(response.ErrInvalidPayload), "message is not valid JSON")
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch action {
		case ws.ActionChat:
			h.handleChat(c, conn, wsLog, quizID, questionID, raw)
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(action)).Msg("Unknown action")
			_ = ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(action))
		}
	}
}

func (h *WSHandler) handleChat(c *gin.Context, conn *websocket.Conn, wsLog zerolog.Logger, quizID, questionID int64, raw []byte) {
	var msg ws.ChatRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		_ = ws.WriteError(conn, string(response.ErrInvalidPayload), "malformed chat message")
		return
	}
	text := strings.TrimSpace(msg.Message)
	if text == "" || len(msg.Message) > ws.MaxMessageLength {
		_ = ws.WriteError(conn, string(response.ErrValidation), "message must be 1 to 4000 characters")
		return
	}

	claims := middleware.GetClaims(c)
	reply, err := h.tutorService.Chat(c.Request.Context(), claims.UserID, &model.TutorChatRequest{
		QuizID:     quizID,
		QuestionID: questionID,
		GivenAns:   msg.GivenAns,
		Message:    text,
	})
	if err != nil {
		_, code := errorStatus(err)
		if code == response.ErrInternal || code == response.ErrLLMUnavailable {
			wsLog.Error().Err(err).Msg("Tutor chat failed")
		}
		_ = ws.WriteError(conn, string(code), response.GetMessage(code))
		return
	}

	_ = ws.WriteTyped(conn, ws.ReplyResponse{Event: ws.EventReply, Reply: reply})
}
