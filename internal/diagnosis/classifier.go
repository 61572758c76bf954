// Package diagnosis labels wrong quiz answers with an entry of the
// mistake-type catalog using an LLM.
package diagnosis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"
	"github.com/sensai/sensai-backend/internal/llm"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/service"
)

const (
	defaultMaxTurns = 20
	maxTokens       = 300
)

// CatalogSource lists the mistake-type catalog.
type CatalogSource interface {
	List(ctx context.Context) ([]model.MistakeType, error)
}

// QuestionSource loads a question with its answer key.
type QuestionSource interface {
	GetByID(ctx context.Context, id int64) (*model.Question, error)
}

// Config tunes the classifier prompt.
type Config struct {
	// MaxTurns caps how many trailing chat turns are sent. Zero means 20.
	MaxTurns int
}

// Classifier implements service.MistakeClassifier on top of an llm.Provider.
type Classifier struct {
	provider  llm.Provider
	catalog   CatalogSource
	questions QuestionSource
	maxTurns  int
	log       zerolog.Logger
}

var _ service.MistakeClassifier = (*Classifier)(nil)

// NewClassifier creates a Classifier.
func NewClassifier(provider llm.Provider, catalog CatalogSource, questions QuestionSource, cfg Config, log zerolog.Logger) *Classifier {
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &Classifier{
		provider:  provider,
		catalog:   catalog,
		questions: questions,
		maxTurns:  maxTurns,
		log:       log.With().Str("component", "classifier").Logger(),
	}
}

var resultSchema = &llm.Schema{
	Name:        "mistake_classification",
	Description: "The mistake type that best explains a wrong quiz answer.",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mistake_type_id": map[string]any{
				"type":        []any{"integer", "null"},
				"description": "id of the best matching mistake type, or null when none fits",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "one sentence explaining the choice",
			},
		},
		"required":             []any{"mistake_type_id", "reasoning"},
		"additionalProperties": false,
	},
}

type result struct {
	MistakeTypeID *int64 `json:"mistake_type_id"`
	Reasoning     string `json:"reasoning"`
}

// Classify returns the catalog id the model picked. A null pick or an id
// outside the catalog yields nil.
func (c *Classifier) Classify(ctx context.Context, in service.ClassifyInput) (*int64, error) {
	catalog, err := c.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load mistake types: %w", err)
	}
	if len(catalog) == 0 {
		return nil, nil
	}

	question, err := c.questions.GetByID(ctx, in.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("load question %d: %w", in.QuestionID, err)
	}

	prompt, err := buildPrompt(question, in, catalog, c.maxTurns)
	if err != nil {
		return nil, fmt.Errorf("build classifier prompt: %w", err)
	}

	resp, err := c.provider.Generate(llm.WithPurpose(ctx, "classify"), llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Schema:      resultSchema,
		Temperature: 0,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("classify answer: %w", err)
	}

	var out result
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	if out.MistakeTypeID == nil {
		return nil, nil
	}

	for _, m := range catalog {
		if m.ID == *out.MistakeTypeID {
			c.log.Debug().
				Int64("question_id", in.QuestionID).
				Int64("mistake_type_id", m.ID).
				Str("reasoning", out.Reasoning).
				Msg("Answer classified")
			return out.MistakeTypeID, nil
		}
	}

	c.log.Warn().
		Int64("question_id", in.QuestionID).
		Int64("mistake_type_id", *out.MistakeTypeID).
		Msg("Classifier returned an id outside the catalog")
	return nil, nil
}

const systemPrompt = `You diagnose why a student answered a quiz question incorrectly.
Pick exactly one mistake type from the catalog by its id, or null if none fits.
Respond only with JSON matching the requested schema.`

var userPrompt = template.Must(template.New("classify").Parse(
	`Question: {{.Question.Title}}
{{- if .Question.Description}}
{{.Question.Description}}
{{- end}}
Correct answer: {{.Question.CorrectAnswer}}
Student answer: {{.Given}}
{{- if .Confidence}}
Student confidence: {{.Confidence}}
{{- end}}
{{- if .Transcript}}

Tutor conversation before answering:
{{- range .Transcript}}
{{.Role}}: {{.Content}}
{{- end}}
{{- end}}

Mistake types:
{{- range .Catalog}}
{{.ID}}. {{.Label}}: {{.Description}}
{{- end}}
`))

type promptData struct {
	Question   *model.Question
	Given      string
	Confidence string
	Transcript []model.ChatTurn
	Catalog    []model.MistakeType
}

func buildPrompt(q *model.Question, in service.ClassifyInput, catalog []model.MistakeType, maxTurns int) (string, error) {
	data := promptData{
		Question:   q,
		Given:      in.GivenAnswer,
		Transcript: in.Transcript,
		Catalog:    catalog,
	}
	if in.Confidence != nil {
		data.Confidence = string(*in.Confidence)
	}
	if len(data.Transcript) > maxTurns {
		data.Transcript = data.Transcript[len(data.Transcript)-maxTurns:]
	}

	var b strings.Builder
	if err := userPrompt.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
