package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/pkg/anthropic"
)

// SubmitProfileTool is the forced tool the synthesizer must call.
const SubmitProfileTool = "submit_final_profile"

const defaultSummary = "Consolidated profile from available sources."

const synthesisAttempts = 2

const synthesisPrompt = `Produce a single coherent person profile from structured tool outputs.

Rules:
- Use only stated facts from the inputs. Do not infer missing data.
- Prefer higher-confidence sources on conflict: LinkedIn-Verify > GitHub > ESPY > others.
- Derive full_name from verified fields when available (LinkedIn-Verify name), else the best available name or username.
- The summary is 1-2 factual sentences and does not mention tools.
- Locations are unique, human-readable strings taken from the inputs.
- Employment history entries include only fields present in the inputs.
- Call submit_final_profile with full_name, summary, locations, employment_history.

Inputs (JSON):
%s`

var submitProfile = anthropic.Tool{
	Name:        SubmitProfileTool,
	Description: "Submit the final synthesized profile after processing data from multiple sources.",
	Schema: map[string]any{
		"full_name":          map[string]any{"type": "string"},
		"summary":            map[string]any{"type": "string"},
		"locations":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"employment_history": map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
	},
	Required: []string{"full_name", "summary", "locations", "employment_history"},
}

// Synthesize consolidates evidence into one profile. The model is asked
// for a forced tool call; a JSON text body is accepted too. After two
// failed attempts the heuristic profile is returned, so the call never
// fails.
func (s *Service) Synthesize(ctx context.Context, results []model.ToolResult) model.FinalProfile {
	if !s.Available() {
		return HeuristicProfile(results)
	}
	prompt := fmt.Sprintf(synthesisPrompt, evidenceJSON(results))
	log := zap.L().With(zap.String("purpose", "synthesize"))

	for attempt := 1; attempt <= synthesisAttempts; attempt++ {
		resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:      s.cfg.SynthesisModel,
			MaxTokens:  2048,
			Messages:   []anthropic.Message{{Role: "user", Content: prompt}},
			Tools:      []anthropic.Tool{submitProfile},
			ToolChoice: SubmitProfileTool,
		})
		if err != nil {
			log.Warn("llm: synthesis call failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		resp.Usage.LogCost(s.cfg.SynthesisModel, "synthesize")

		if input, ok := resp.ToolInput(SubmitProfileTool); ok {
			var p model.FinalProfile
			if err := json.Unmarshal(input, &p); err == nil {
				return normalizeProfile(p)
			}
		}
		if p, ok := profileFromText(resp.Text()); ok {
			return p
		}
		log.Warn("llm: synthesis returned neither tool call nor json", zap.Int("attempt", attempt))
	}
	return HeuristicProfile(results)
}

// profileFromText accepts a JSON object body, mapping "name" to full_name
// when needed.
func profileFromText(text string) (model.FinalProfile, bool) {
	if strings.TrimSpace(text) == "" {
		return model.FinalProfile{}, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(CleanJSON(text)), &obj); err != nil {
		return model.FinalProfile{}, false
	}
	p := model.FinalProfile{
		FullName:  firstString(obj, "full_name", "name"),
		Summary:   firstString(obj, "summary"),
		Locations: model.Params(obj).Strings("locations"),
	}
	if hist, ok := obj["employment_history"].([]any); ok {
		for _, h := range hist {
			if m, ok := h.(map[string]any); ok {
				p.EmploymentHistory = append(p.EmploymentHistory, m)
			}
		}
	}
	return normalizeProfile(p), true
}

func normalizeProfile(p model.FinalProfile) model.FinalProfile {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" {
		p.FullName = "Unknown"
	}
	if strings.TrimSpace(p.Summary) == "" {
		p.Summary = defaultSummary
	}
	p.Locations = uniqueStrings(p.Locations)
	if p.EmploymentHistory == nil {
		p.EmploymentHistory = []map[string]any{}
	}
	return p
}

// HeuristicProfile builds a minimal profile from raw evidence: the first
// name-like field, and the union of location fields in first-seen order.
func HeuristicProfile(results []model.ToolResult) model.FinalProfile {
	var (
		name      string
		locations []string
	)
	for _, r := range results {
		if r.RawData == nil {
			continue
		}
		if name == "" {
			name = firstString(r.RawData, "name", "full_name", "username")
		}
		raw := model.Params(r.RawData)
		loc := raw.Strings("location")
		if len(loc) == 0 {
			loc = raw.Strings("locations")
		}
		locations = append(locations, loc...)
	}
	if name == "" {
		name = "Unknown"
	}
	return model.FinalProfile{
		FullName:          name,
		Summary:           defaultSummary,
		Locations:         uniqueStrings(locations),
		EmploymentHistory: []map[string]any{},
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
