package main

import (
	"strings"
	"testing"

	"github.com/sensai/sensai-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalog(t *testing.T) {
	entries, err := parseCatalog(strings.NewReader(`[
		{"label": " Conceptual ", "description": " Misunderstood the idea. "},
		{"id": 99, "label": "Guess", "description": ""}
	]`))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Conceptual", entries[0].Label)
	assert.Equal(t, "Misunderstood the idea.", entries[0].Description)
	assert.Zero(t, entries[1].ID)

	for name, raw := range map[string]string{
		"not an array":    `{"label":"x"}`,
		"empty":           `[]`,
		"blank label":     `[{"label":"  "}]`,
		"duplicate label": `[{"label":"Guess"},{"label":"guess"}]`,
		"unknown field":   `[{"label":"Guess","weight":2}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseCatalog(strings.NewReader(raw))
			assert.Error(t, err)
		})
	}
}

func TestParseRole(t *testing.T) {
	role, err := parseRole(" Student ")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, role)

	role, err = parseRole("instructor")
	require.NoError(t, err)
	assert.Equal(t, model.RoleInstructor, role)

	_, err = parseRole("admin")
	assert.Error(t, err)
}

func TestReadPasswordLine(t *testing.T) {
	pw, err := readPasswordLine(strings.NewReader("hunter2hunter2\r\nignored"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2hunter2", pw)

	pw, err = readPasswordLine(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", pw)
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"create-user", "seed-mistake-types", "purge-sessions", "set-course-key", "migrate"} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("database-url"))
}
