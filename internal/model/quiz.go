package model

import "time"

// Quiz is a set of questions students unlock with an access code.
type Quiz struct {
	ID            int64     `json:"id"`
	CourseID      int64     `json:"courseId"`
	Title         string    `json:"title"`
	Prompt        *string   `json:"prompt"`
	AccessCode    string    `json:"accessCode,omitempty"`
	QuestionCount int       `json:"questionCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// QuizRequest is the payload for creating or updating a quiz.
type QuizRequest struct {
	Title      string  `json:"title" binding:"required,min=1,max=300"`
	Prompt     *string `json:"prompt" binding:"omitempty,max=5000"`
	AccessCode string  `json:"accessCode" binding:"required,alphanum,min=4,max=32"`
}

// AddQuizQuestionRequest associates an existing question with a quiz.
type AddQuizQuestionRequest struct {
	QuestionID int64 `json:"questionId" binding:"required,gt=0"`
}

// UnlockQuizRequest is sent by a student to gain access to a quiz.
type UnlockQuizRequest struct {
	AccessCode string `json:"accessCode" binding:"required,max=32"`
}

// QuizPaper is what a student receives after unlocking a quiz.
type QuizPaper struct {
	Quiz      Quiz              `json:"quiz"`
	Questions []StudentQuestion `json:"questions"`
}
