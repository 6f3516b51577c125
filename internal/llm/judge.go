package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/osint-cli/internal/model"
)

// SourcePriority orders sources for conflict resolution in the judge.
var SourcePriority = []string{
	"LinkedIn-Verify", "ESPY", "GitHub", "Numverify", "OpenCage",
	"Holehe-Modules", "GHunt", "X-Verify", "LinkedIn-Finder", "X-Finder",
}

var judgeRules = []string{
	"Use only facts present in raw evidence; do not invent data.",
	"If a field in the profile lacks any supporting evidence, drop it.",
	"Resolve conflicts by source_priority; if tied, prefer majority agreement.",
	"Provide confidence 0.0-1.0 per field based on source strength and agreement.",
	"Provide provenance listing sources that support each field value.",
	"Return JSON only with judged_profile, field_confidence, provenance, warnings.",
}

const judgeSystem = "You are a strict validator. Sanitize a person profile using raw evidence. Follow the policy exactly. If unknown, omit. No speculation."

const judgePrompt = `Policy:
%s

InputProfile:
%s

RawEvidence:
%s

Output schema:
{"judged_profile": {"full_name": str, "summary": str, "locations": [str], "employment_history": [object]},
 "field_confidence": {str: float}, "provenance": {str: [str]}, "warnings": [str]}`

type judgeOutput struct {
	JudgedProfile   *model.FinalProfile `json:"judged_profile"`
	FieldConfidence map[string]float64  `json:"field_confidence"`
	Provenance      map[string][]string `json:"provenance"`
	Warnings        []string            `json:"warnings"`
}

// Judge validates profile against the raw evidence. When the model is
// unavailable or its output is malformed, FallbackJudgement is returned.
func (s *Service) Judge(ctx context.Context, profile model.FinalProfile, results []model.ToolResult) model.Judgement {
	if !s.Available() {
		return FallbackJudgement(profile, results)
	}

	policy, _ := json.Marshal(map[string]any{"source_priority": SourcePriority, "rules": judgeRules})
	input, _ := json.Marshal(profile)
	prompt := fmt.Sprintf(judgePrompt, policy, input, evidenceJSON(results))

	text, err := s.Complete(ctx, s.cfg.JudgeModel, "judge", judgeSystem, prompt, 2048)
	if err != nil {
		zap.L().Warn("llm: judge call failed", zap.Error(err))
		return FallbackJudgement(profile, results)
	}

	var out judgeOutput
	if err := json.Unmarshal([]byte(CleanJSON(text)), &out); err != nil || out.JudgedProfile == nil || out.JudgedProfile.FullName == "" {
		zap.L().Warn("llm: judge returned malformed output", zap.Error(err))
		return FallbackJudgement(profile, results)
	}

	j := model.Judgement{
		JudgedProfile:   normalizeProfile(*out.JudgedProfile),
		FieldConfidence: out.FieldConfidence,
		Provenance:      out.Provenance,
		Warnings:        out.Warnings,
	}
	if j.FieldConfidence == nil {
		j.FieldConfidence = map[string]float64{}
	}
	if j.Provenance == nil {
		j.Provenance = map[string][]string{}
	}
	if j.Warnings == nil {
		j.Warnings = []string{}
	}
	return j
}

// FallbackJudgement keeps the profile as is and derives provenance and
// confidence from which sources are present.
func FallbackJudgement(profile model.FinalProfile, results []model.ToolResult) model.Judgement {
	sources := make([]string, 0, len(results))
	for _, r := range results {
		sources = append(sources, r.Source)
	}

	prov := map[string][]string{}
	conf := map[string]float64{}

	prov["full_name"] = supporting(sources, "LinkedIn-Verify", "GitHub")
	conf["full_name"] = 0.7
	if slices.Contains(prov["full_name"], "LinkedIn-Verify") {
		conf["full_name"] = 0.9
	}

	for _, loc := range profile.Locations {
		key := "locations::" + loc
		prov[key] = supporting(sources, "LinkedIn-Verify", "OpenCage", model.SourceUserInput, "GitHub")
		conf[key] = 0.7
		if slices.Contains(prov[key], "OpenCage") {
			conf[key] = 0.85
		}
	}

	return model.Judgement{
		JudgedProfile:   profile,
		FieldConfidence: conf,
		Provenance:      prov,
		Warnings:        []string{},
		Fallback:        true,
	}
}

// supporting returns the sources in allowed, or every source when none
// match.
func supporting(sources []string, allowed ...string) []string {
	var out []string
	for _, s := range sources {
		if slices.Contains(allowed, s) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return append([]string{}, sources...)
	}
	return out
}
