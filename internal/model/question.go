package model

import (
	"strings"
	"time"
)

// AnswerDelimiter joins incorrect-answer alternatives in storage.
const AnswerDelimiter = "|"

// Question is a single quiz item with one correct answer.
type Question struct {
	ID               int64     `json:"id"`
	CourseID         int64     `json:"courseId"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Prompt           *string   `json:"prompt"`
	CorrectAnswer    string    `json:"correctAnswer"`
	IncorrectAnswers string    `json:"incorrectAnswers"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Distractors splits the stored incorrect answers, dropping blanks.
func (q *Question) Distractors() []string {
	return SplitAnswers(q.IncorrectAnswers)
}

// SplitAnswers splits a delimiter-joined answer list.
func SplitAnswers(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, AnswerDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// JoinAnswers is the inverse of SplitAnswers.
func JoinAnswers(answers []string) string {
	kept := make([]string, 0, len(answers))
	for _, a := range answers {
		if s := strings.TrimSpace(a); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, AnswerDelimiter)
}

// QuestionRequest is the payload for creating or updating a question.
type QuestionRequest struct {
	Title            string   `json:"title" binding:"required,min=1,max=300"`
	Description      string   `json:"description" binding:"max=5000"`
	Prompt           *string  `json:"prompt" binding:"omitempty,max=5000"`
	CorrectAnswer    string   `json:"correctAnswer" binding:"required,max=1000"`
	IncorrectAnswers []string `json:"incorrectAnswers" binding:"max=10,dive,max=1000,excludesall=0x7C"`
}

// StudentQuestion is the answer-free view served to a student taking a quiz.
type StudentQuestion struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Prompt      *string  `json:"prompt"`
	Options     []string `json:"options"`
}
