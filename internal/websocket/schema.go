package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionChat Action = "chat"
	ActionPing Action = "ping"
)

// MaxMessageLength bounds one chat message, matching the REST endpoint.
const MaxMessageLength = 4000

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ChatRequest is one student message to the tutor.
type ChatRequest struct {
	Action   Action  `json:"action"`
	Message  string  `json:"message"`
	GivenAns *string `json:"givenAns"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventReady Event = "ready"
	EventReply Event = "reply"
	EventError Event = "error"
	EventPong  Event = "pong"
)

// ReadyResponse is sent once after the upgrade.
type ReadyResponse struct {
	Event      Event `json:"event"`
	QuizID     int64 `json:"quizId"`
	QuestionID int64 `json:"questionId"`
}

type ReplyResponse struct {
	Event Event  `json:"event"`
	Reply string `json:"reply"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
