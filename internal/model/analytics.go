package model

import (
	"time"

	"github.com/google/uuid"
)

// QuizSummary holds the headline numbers of a quiz's analytics page.
type QuizSummary struct {
	QuizID         int64    `json:"quizId"`
	TotalAttempts  int      `json:"totalAttempts"`
	CorrectCount   int      `json:"correctCount"`
	StudentCount   int      `json:"studentCount"`
	SessionCount   int      `json:"sessionCount"`
	CorrectRate    *float64 `json:"correctRate"`
	AvgNumMessages *float64 `json:"avgNumMessages"`
}

// QuestionStat is the correctness breakdown of one question within a quiz.
type QuestionStat struct {
	QuestionID   int64   `json:"questionId"`
	Title        string  `json:"title"`
	Attempts     int     `json:"attempts"`
	Correct      int     `json:"correct"`
	Unanswered   int     `json:"unanswered"`
	CorrectRatio float64 `json:"correctRatio"`
}

// MistakeStat counts attempts per mistake type.
type MistakeStat struct {
	MistakeTypeID int64  `json:"mistakeTypeId"`
	Label         string `json:"label"`
	Count         int    `json:"count"`
}

// ConfidenceStat shows how self-reported confidence lines up with correctness.
type ConfidenceStat struct {
	Confidence Confidence `json:"confidence"`
	Attempts   int        `json:"attempts"`
	Correct    int        `json:"correct"`
}

// QuizSession is a group of attempts submitted together (two or more rows sharing a batch).
type QuizSession struct {
	BatchID        uuid.UUID `json:"batchId"`
	StudentID      int64     `json:"studentId"`
	StudentName    string    `json:"studentName"`
	StartedAt      time.Time `json:"startedAt"`
	TotalQuestions int       `json:"totalQuestions"`
	Score          int       `json:"score"`
}

// QuizAnalytics consolidates everything shown on the instructor analytics page.
type QuizAnalytics struct {
	Summary    QuizSummary      `json:"summary"`
	Questions  []QuestionStat   `json:"questions"`
	Mistakes   []MistakeStat    `json:"mistakes"`
	Confidence []ConfidenceStat `json:"confidence"`
	Sessions   []QuizSession    `json:"sessions"`
}
