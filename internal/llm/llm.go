// Package llm wraps the language-model collaborators of the pipeline:
// entity extraction, profile synthesis, judging, search hints, and raw
// completions for the planner. Every call degrades to a local fallback
// when the model is unavailable or returns something unusable.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osint-cli/internal/config"
	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/pkg/anthropic"
)

// ErrUnavailable is returned by Complete when no model client is
// configured.
var ErrUnavailable = eris.New("llm: model unavailable")

// Service holds the model client and per-purpose model names.
type Service struct {
	client anthropic.Client
	cfg    config.AnthropicConfig
}

// New creates a Service. A nil client routes every call to its fallback.
func New(client anthropic.Client, cfg config.AnthropicConfig) *Service {
	return &Service{client: client, cfg: cfg}
}

// Available reports whether a model client is configured.
func (s *Service) Available() bool {
	return s != nil && s.client != nil
}

// Complete sends a single-turn prompt and returns the concatenated text.
func (s *Service) Complete(ctx context.Context, modelName, purpose, system, prompt string, maxTokens int64) (string, error) {
	if !s.Available() {
		return "", ErrUnavailable
	}
	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     modelName,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrapf(err, "llm: %s", purpose)
	}
	resp.Usage.LogCost(modelName, purpose)
	return resp.Text(), nil
}

// PlanModel returns the model name used by the planner.
func (s *Service) PlanModel() string {
	if s == nil {
		return ""
	}
	return s.cfg.PlanModel
}

const extractPrompt = `Convert the user's free-text query into a JSON object with exactly these keys:
{"name": string, "email": string, "phone": string, "username": string, "location": string, "free_text_context": string}

Use null for anything not stated. Do not add keys.

Example:
Query: "Find John Doe, goes by @johndoeonline, senior engineer working on AI, maybe in San Francisco."
JSON: {"name": "John Doe", "email": null, "phone": null, "username": "@johndoeonline", "location": "San Francisco", "free_text_context": "senior engineer working on AI"}

Query: %q`

// Extract parses free text into a SearchQuery. Any failure yields an
// empty query.
func (s *Service) Extract(ctx context.Context, text string) model.SearchQuery {
	if !s.Available() || strings.TrimSpace(text) == "" {
		return model.SearchQuery{}
	}
	out, err := s.Complete(ctx, s.cfg.ExtractModel, "extract", "Return JSON only.", fmt.Sprintf(extractPrompt, text), 512)
	if err != nil {
		zap.L().Warn("llm: extract failed", zap.Error(err))
		return model.SearchQuery{}
	}

	var q model.SearchQuery
	if err := json.Unmarshal([]byte(CleanJSON(out)), &q); err != nil {
		zap.L().Warn("llm: extract returned invalid json", zap.Error(err))
		return model.SearchQuery{}
	}
	q.Name = strings.TrimSpace(q.Name)
	q.Email = strings.TrimSpace(q.Email)
	q.Phone = strings.TrimSpace(q.Phone)
	q.Username = strings.TrimSpace(q.Username)
	q.Location = strings.TrimSpace(q.Location)
	q.FreeTextContext = strings.TrimSpace(q.FreeTextContext)
	return q
}

const hintPrompt = `Extract one short hint (at most 50 characters) from the text that can uniquely help find a person's public profiles. Prefer proper nouns such as an employer, university, project, or certification. Avoid generic roles and buzzwords. Return only the hint, without quotes.

Text:
%s`

const maxHint = 50

// Hint returns a short disambiguating search hint, or "" on failure.
func (s *Service) Hint(ctx context.Context, text string) string {
	if !s.Available() || strings.TrimSpace(text) == "" {
		return ""
	}
	out, err := s.Complete(ctx, s.cfg.ExtractModel, "hint", "", fmt.Sprintf(hintPrompt, text), 64)
	if err != nil {
		return ""
	}
	hint := strings.Trim(strings.TrimSpace(out), `"'`)
	if r := []rune(hint); len(r) > maxHint {
		hint = string(r[:maxHint])
	}
	return strings.TrimSpace(hint)
}

// CleanJSON strips markdown fences and returns the first balanced JSON
// object in text. Text without an object is returned trimmed.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		inner := strings.TrimPrefix(text, "```")
		if end := strings.LastIndex(inner, "```"); end >= 0 {
			inner = inner[:end]
		}
		// drop the language tag line
		if nl := strings.IndexByte(inner, '\n'); nl >= 0 && !strings.Contains(inner[:nl], "{") {
			inner = inner[nl+1:]
		}
		text = strings.TrimSpace(inner)
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return text
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}

// evidence is the prompt view of a tool result.
type evidence struct {
	Source  string         `json:"source"`
	RawData map[string]any `json:"raw_data"`
}

func evidenceJSON(results []model.ToolResult) string {
	items := make([]evidence, 0, len(results))
	for _, r := range results {
		items = append(items, evidence{Source: r.Source, RawData: r.RawData})
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
