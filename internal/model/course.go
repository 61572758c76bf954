package model

import "time"

// Course groups questions and quizzes under one instructor.
type Course struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	InstructorID int64     `json:"instructorId"`
	HasLLMKey    bool      `json:"hasLlmKey"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CourseRequest is the payload for creating or updating a course.
type CourseRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

// CourseKeyRequest sets the course's own LLM API key.
type CourseKeyRequest struct {
	APIKey string `json:"apiKey" binding:"required,min=8,max=512"`
}
