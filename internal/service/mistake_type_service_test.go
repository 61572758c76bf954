package service

import (
	"testing"

	"github.com/sensai/sensai-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindUnanswered(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   *int64
	}{
		{"seeded label", []string{"Conceptual", "Unanswered"}, ptr(int64(2))},
		{"lower case", []string{"unanswered"}, ptr(int64(1))},
		{"no attempt with space", []string{"Guess", "No Attempt"}, ptr(int64(2))},
		{"no attempt with dash", []string{"no-attempt"}, ptr(int64(1))},
		{"no attempt joined", []string{"NoAttempt"}, ptr(int64(1))},
		{"missing", []string{"Conceptual", "Careless"}, nil},
		{"prefix only", []string{"Unansweredness"}, nil},
		{"not at start", []string{"Partially unanswered"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			types := make([]model.MistakeType, len(tt.labels))
			for i, l := range tt.labels {
				types[i] = model.MistakeType{ID: int64(i + 1), Label: l}
			}

			got := findUnanswered(types)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}
