package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatRole is the sender of a tutor chat message.
type ChatRole string

const (
	ChatRoleStudent ChatRole = "student"
	ChatRoleTutor   ChatRole = "tutor"
)

// ChatTurn is a single message of a tutor conversation.
type ChatTurn struct {
	Role    ChatRole `json:"role" binding:"required,oneof=student tutor"`
	Content string   `json:"content" binding:"required,max=8000"`
}

// ChatLog is a transcript queued for persistence after an attempt is recorded.
type ChatLog struct {
	StudentID  int64      `json:"studentId"`
	QuizID     int64      `json:"quizId"`
	QuestionID int64      `json:"questionId"`
	BatchID    uuid.UUID  `json:"batchId"`
	Turns      []ChatTurn `json:"turns"`
	LoggedAt   time.Time  `json:"loggedAt"`
}

// TutorChatRequest is one student message to the tutor.
type TutorChatRequest struct {
	QuizID     int64   `json:"quizId" binding:"required,gt=0"`
	QuestionID int64   `json:"questionId" binding:"required,gt=0"`
	GivenAns   *string `json:"givenAns" binding:"omitempty,max=1000"`
	Message    string  `json:"message" binding:"required,notblank,max=4000"`
}
