package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sensai/sensai-backend/internal/middleware"
	"github.com/sensai/sensai-backend/internal/service"
)

const keepAliveInterval = 30 * time.Second

// MonitorHandler streams a quiz's recorded attempts to its instructor.
type MonitorHandler struct {
	monitorService *service.MonitorService
	log            zerolog.Logger
}

func NewMonitorHandler(monitorService *service.MonitorService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorQuizSSE godoc
// GET /api/analytics/quizzes/:id/monitor
// Sends a snapshot of recent attempts, then every new attempt as it is recorded.
func (h *MonitorHandler) MonitorQuizSSE(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	reqCtx := c.Request.Context()
	if err := h.monitorService.Authorize(reqCtx, claims.UserID, quizID); err != nil {
		failWithError(c, err)
		return
	}

	// Subscribe before the snapshot so no attempt falls between the two.
	pubsub := h.monitorService.Subscribe(reqCtx, quizID)
	defer pubsub.Close()
	ch := pubsub.Channel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	snapshot, err := h.monitorService.Snapshot(reqCtx, quizID)
	if err != nil {
		h.log.Warn().Err(err).Int64("quiz_id", quizID).Msg("Failed to load monitor snapshot")
	}
	c.SSEvent("message", gin.H{"type": "snapshot", "attempts": orEmpty(snapshot)})
	c.Writer.Flush()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	h.log.Info().Int64("quiz_id", quizID).Int64("instructor_id", claims.UserID).Msg("Instructor attached to live monitor SSE")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Int64("quiz_id", quizID).Msg("Instructor disconnected from live monitor SSE")
			return

		case msg, open := <-ch:
			if !open {
				return
			}
			// Payloads are already JSON.
			writeSSEData(c, []byte(msg.Payload))

		case <-keepAliveTicker.C:
			writeSSEData(c, pingPayload)
		}
	}
}

func writeSSEData(c *gin.Context, payload []byte) {
	_, _ = c.Writer.Write([]byte("data: "))
	_, _ = c.Writer.Write(payload)
	_, _ = c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
