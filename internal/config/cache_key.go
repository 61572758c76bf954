package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionKey returns the cache key for an authenticated session, keyed by session ID.
func (r *CacheKeyStruct) SessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// QuestionAnswerKey returns the cache key for a question's correct answer.
func (r *CacheKeyStruct) QuestionAnswerKey(questionID int64) string {
	return fmt.Sprintf("question:%d:answer", questionID)
}

// UnansweredMistakeKey holds the catalog ID of the reserved "unanswered" mistake type.
func (r *CacheKeyStruct) UnansweredMistakeKey() string {
	return "mistake_type:unanswered"
}

// QuizUnlockKey marks a quiz as unlocked for a student after a valid access code.
func (r *CacheKeyStruct) QuizUnlockKey(studentID, quizID int64) string {
	return fmt.Sprintf("student:%d:quiz:%d:unlocked", studentID, quizID)
}

// TutorTranscriptKey returns the list key holding a student's tutor chat for one question.
func (r *CacheKeyStruct) TutorTranscriptKey(studentID, quizID, questionID int64) string {
	return fmt.Sprintf("student:%d:quiz:%d:question:%d:tutor", studentID, quizID, questionID)
}

// QuizAttemptChannel returns the Redis PubSub channel name for a quiz's live attempt feed.
func (r *CacheKeyStruct) QuizAttemptChannel(quizID int64) string {
	return fmt.Sprintf("quiz:%d:attempts", quizID)
}

var CacheKey = NewCacheKeyStruct()
