package service

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShuffleOptions_ContainsCorrectAndDistractors(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	opts := shuffleOptions("Paris", []string{"Lyon", "Nice", "Lille"}, r.Shuffle)

	assert.Len(t, opts, 4)
	assert.ElementsMatch(t, []string{"Paris", "Lyon", "Nice", "Lille"}, opts)
}

func TestShuffleOptions_FreeTextQuestion(t *testing.T) {
	called := false
	opts := shuffleOptions("42", nil, func(int, func(i, j int)) { called = true })

	assert.Empty(t, opts)
	assert.NotNil(t, opts)
	assert.False(t, called)
}

func TestShuffleOptions_DoesNotMutateDistractors(t *testing.T) {
	distractors := []string{"a", "b"}
	reverse := func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}

	opts := shuffleOptions("c", distractors, reverse)

	assert.Equal(t, []string{"b", "a", "c"}, opts)
	assert.Equal(t, []string{"a", "b"}, distractors)
}

func TestNormalizeAccessCode(t *testing.T) {
	assert.Equal(t, "ABC123", normalizeAccessCode("  abc123 "))
}
