package model

import (
	"time"

	"github.com/google/uuid"
)

// Confidence is the student's self-reported certainty in an answer.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Attempt is one student's response to one question within one submission batch.
type Attempt struct {
	ID            int64       `json:"id"`
	StudentID     int64       `json:"studentId"`
	QuestionID    int64       `json:"questionId"`
	QuizID        int64       `json:"quizId"`
	BatchID       uuid.UUID   `json:"batchId"`
	AttemptedAt   time.Time   `json:"attemptedAt"`
	GivenAnswer   *string     `json:"givenAnswer"`
	IsCorrect     bool        `json:"isCorrect"`
	NumMessages   int         `json:"numMessages"`
	Confidence    *Confidence `json:"confidence"`
	MistakeTypeID *int64      `json:"mistakeTypeId"`
}

// QuestionSubmission is one element of a quiz submission's questionArray.
type QuestionSubmission struct {
	QuestionID       int64       `json:"questionId" binding:"omitempty,gt=0"`
	GivenAns         *string     `json:"givenAns" binding:"omitempty,max=1000"`
	NumMsgs          int         `json:"numMsgs" binding:"min=0"`
	ChatHistory      []ChatTurn  `json:"chatHistory" binding:"omitempty,max=200,dive"`
	SelfConfidence   *Confidence `json:"selfConfidence" binding:"omitempty,oneof=low medium high"`
	HasCheckedAnswer bool        `json:"hasCheckedAnswer"`
}

// SubmitQuizRequest is the payload of POST /api/attempt/submit-quiz.
type SubmitQuizRequest struct {
	QuizID        int64                `json:"quizId" binding:"required,gt=0"`
	QuestionArray []QuestionSubmission `json:"questionArray" binding:"required,min=1,max=200,dive"`
}

// SubmitAttemptRequest is the payload of POST /api/attempt/submit.
type SubmitAttemptRequest struct {
	QuizID int64 `json:"quizId" binding:"required,gt=0"`
	QuestionSubmission
	BatchID *uuid.UUID `json:"batchId"`
}

// QuestionFeedback is the per-question result returned after a submission.
type QuestionFeedback struct {
	QuestionID    int64   `json:"questionId"`
	GivenAnswer   *string `json:"givenAnswer"`
	IsCorrect     bool    `json:"isCorrect"`
	MistakeTypeID *int64  `json:"mistakeTypeId"`
	Error         string  `json:"error,omitempty"`
}

// QuizSubmissionResult is returned by POST /api/attempt/submit-quiz.
type QuizSubmissionResult struct {
	Success          bool               `json:"success"`
	QuestionFeedback []QuestionFeedback `json:"questionFeedback"`
	TotalQuestions   int                `json:"totalQuestions"`
	Score            int                `json:"score"`
	BatchID          uuid.UUID          `json:"batchId"`
	Timestamp        time.Time          `json:"timestamp"`
}

// AttemptEvent is published on a quiz's live feed after each recorded attempt.
type AttemptEvent struct {
	Type          string    `json:"type"`
	StudentID     int64     `json:"studentId"`
	QuestionID    int64     `json:"questionId"`
	QuizID        int64     `json:"quizId"`
	BatchID       uuid.UUID `json:"batchId"`
	IsCorrect     bool      `json:"isCorrect"`
	Answered      bool      `json:"answered"`
	MistakeTypeID *int64    `json:"mistakeTypeId"`
	AttemptedAt   time.Time `json:"attemptedAt"`
}
