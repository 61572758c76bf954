package service

import (
	"testing"

	"github.com/sensai/sensai-backend/internal/llm"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTutorPrompt(t *testing.T) {
	q := &model.Question{
		Title:         "Capital of France",
		Description:   "Name the city.",
		Prompt:        ptr("Point to the Seine."),
		CorrectAnswer: "Paris",
	}
	quiz := &model.Quiz{Prompt: ptr("  Geography week 2 ")}

	got, err := buildTutorPrompt(quiz, q, ptr(" Lyon "))
	require.NoError(t, err)

	assert.Contains(t, got, "Question: Capital of France\nName the city.")
	assert.Contains(t, got, "Instructor notes for this quiz:\nGeography week 2\n")
	assert.Contains(t, got, "Instructor notes for this question:\nPoint to the Seine.")
	assert.Contains(t, got, "Correct answer (for your reference only): Paris")
	assert.Contains(t, got, "The student answered: Lyon\n")
}

func TestBuildTutorPrompt_Minimal(t *testing.T) {
	got, err := buildTutorPrompt(nil, &model.Question{Title: "2+2", CorrectAnswer: "4"}, nil)
	require.NoError(t, err)

	assert.Contains(t, got, "The student has not answered yet.")
	assert.NotContains(t, got, "Instructor notes")
}

func TestToMessages(t *testing.T) {
	msgs := toMessages([]model.ChatTurn{
		{Role: model.ChatRoleStudent, Content: "hint?"},
		{Role: model.ChatRoleTutor, Content: "think about rivers"},
	})

	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "hint?"},
		{Role: llm.RoleAssistant, Content: "think about rivers"},
	}, msgs)
}

func TestDecodeTurns_SkipsBrokenEntries(t *testing.T) {
	turns := decodeTurns([]string{
		`{"role":"student","content":"hi"}`,
		`not json`,
		`{"role":"tutor","content":""}`,
		`{"role":"tutor","content":"hello"}`,
	})

	assert.Equal(t, []model.ChatTurn{
		{Role: model.ChatRoleStudent, Content: "hi"},
		{Role: model.ChatRoleTutor, Content: "hello"},
	}, turns)
}
