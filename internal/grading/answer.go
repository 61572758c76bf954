// Package grading decides whether a submitted answer matches the stored one.
package grading

import (
	"math"
	"strconv"
	"strings"
)

// IsAnswerCorrect compares a given answer against the correct answer.
//
// A nil or blank given answer is incorrect. When both sides parse as finite
// floats they are compared numerically, so "3" and "3.0" match; NaN and
// infinities are not numbers here. Otherwise when both parse as integers they are compared as integers; otherwise the trimmed
// strings are compared case-insensitively. Both sides must satisfy the same
// predicate, there is no cross-type coercion.
func IsAnswerCorrect(correct string, given *string) bool {
	if given == nil {
		return false
	}
	c := strings.TrimSpace(correct)
	g := strings.TrimSpace(*given)
	if c == "" || g == "" {
		return false
	}

	cf, cOK := parseFinite(c)
	gf, gOK := parseFinite(g)
	if cOK && gOK {
		return cf == gf
	}

	ci, cErr := strconv.ParseInt(c, 10, 64)
	gi, gErr := strconv.ParseInt(g, 10, 64)
	if cErr == nil && gErr == nil {
		return ci == gi
	}

	return strings.EqualFold(c, g)
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NormalizeAnswer returns nil for a missing or blank answer and the trimmed
// answer otherwise.
func NormalizeAnswer(given *string) *string {
	if given == nil {
		return nil
	}
	s := strings.TrimSpace(*given)
	if s == "" {
		return nil
	}
	return &s
}
