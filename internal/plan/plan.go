// Package plan asks the model for an advisory tool plan and executes the
// scrape steps of a plan under a host allowlist.
package plan

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/osint-cli/internal/llm"
	"github.com/sells-group/osint-cli/internal/model"
)

// finish_if values for plans the model could not produce.
const (
	FinishUnavailable = "Model unavailable"
	FinishInvalid     = "Invalid plan"
)

type manifestEntry struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func params(required []string, props map[string]string) map[string]any {
	p := map[string]any{}
	for k, typ := range props {
		switch typ {
		case "string[]":
			p[k] = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
		default:
			p[k] = map[string]any{"type": typ}
		}
	}
	return map[string]any{"type": "object", "properties": p, "required": required}
}

// manifest describes the tools the planner may propose.
var manifest = []manifestEntry{
	{"hyperbrowser_scrape", "Fetch content for one or many URLs; prefer formats ['markdown','links'] and only_main_content=true.",
		params([]string{"urls"}, map[string]string{"urls": "string[]", "formats": "string[]", "only_main_content": "boolean", "timeout_ms": "number"})},
	{"hyperbrowser_extract", "Extract structured data from URLs via schema or prompt.",
		params([]string{"urls"}, map[string]string{"urls": "string[]", "schema": "object", "prompt": "string", "max_links": "number"})},
	{"hyperbrowser_crawl", "Constrained crawl of a site to a small number of pages.",
		params([]string{"url"}, map[string]string{"url": "string", "max_pages": "number", "include_patterns": "string[]", "exclude_patterns": "string[]"})},
	{"espy_email", "High-cost email enrichment; use only after strong identity match.",
		params([]string{"email"}, map[string]string{"email": "string"})},
	{"espy_phone", "High-cost phone enrichment; use only after strong identity match.",
		params([]string{"phone"}, map[string]string{"phone": "string"})},
	{"holehe_cli", "Discover services linked to an email.",
		params([]string{"email"}, map[string]string{"email": "string"})},
	{"numverify", "Validate phone format and metadata.",
		params([]string{"phone"}, map[string]string{"phone": "string"})},
	{"github", "Scrape GitHub by username.",
		params([]string{"username"}, map[string]string{"username": "string"})},
}

const planPrompt = `You produce a minimal execution plan in JSON. No execution.

Context:
%s

Tool manifest:
%s

Guidance:
%s

Output JSON schema:
{"steps": [{"tool": "string", "inputs": {}, "why": "string", "success_if": "string"}], "finish_if": "string", "budget": {"max_steps": "number", "max_runtime_s": "number"}}

Rules:
- Keep steps within budget.max_steps.
- Minimize cost. Prefer scrape then extract. Use crawl only if necessary.
- Use allowlisted domains when suggesting URLs.
- If inputs are insufficient for a tool, omit that step.
Return only JSON.`

// Planner generates plans with the language model.
type Planner struct {
	llm *llm.Service
}

// NewPlanner creates a Planner. A nil or unavailable service yields empty
// plans with finish_if "Model unavailable".
func NewPlanner(svc *llm.Service) *Planner {
	return &Planner{llm: svc}
}

// Generate proposes a plan for stage and params. It never fails; an
// unusable model answer yields an empty plan explaining why.
func (p *Planner) Generate(ctx context.Context, stage model.Stage, in model.Params) model.Plan {
	budget := model.DefaultPlanBudget()
	if !p.llm.Available() {
		return model.Plan{Steps: []model.PlanStep{}, FinishIf: FinishUnavailable, Budget: budget}
	}

	text, err := p.llm.Complete(ctx, p.llm.PlanModel(), "plan", "Return JSON only.", buildPrompt(stage, in, budget), 1024)
	if err != nil {
		zap.L().Warn("plan: generate failed", zap.String("stage", string(stage)), zap.Error(err))
		return model.Plan{Steps: []model.PlanStep{}, FinishIf: FinishUnavailable, Budget: budget}
	}

	out, ok := parsePlan(text)
	if !ok {
		zap.L().Warn("plan: model returned an invalid plan", zap.String("stage", string(stage)))
		return model.Plan{Steps: []model.PlanStep{}, FinishIf: FinishInvalid, Budget: budget}
	}
	if out.Budget.MaxSteps <= 0 && out.Budget.MaxRuntimeS <= 0 {
		out.Budget = budget
	}
	return out
}

func buildPrompt(stage model.Stage, in model.Params, budget model.PlanBudget) string {
	ctxJSON, _ := json.Marshal(map[string]any{"stage": stage, "inputs": in})
	manJSON, _ := json.Marshal(map[string]any{"function_declarations": manifest})
	guidance, _ := json.Marshal(map[string]any{
		"stage":  stage,
		"budget": budget,
		"policy": map[string]any{
			"prefer":            []string{"hyperbrowser_scrape", "github", "numverify", "holehe_cli"},
			"use_crawl_only_if": "domain is personal/company and you need multiple pages",
			"use_espy_only_if":  "email/phone has medium-high confidence",
			"allowlist_hint":    []string{"github.com", "x.com", "linkedin.com", "medium.com", "dev.to", "scholar.google.com", "orcid.org"},
		},
	})
	return fmt.Sprintf(planPrompt, ctxJSON, manJSON, guidance)
}

// parsePlan accepts a bare JSON plan or one wrapped in fences or prose.
func parsePlan(text string) (model.Plan, bool) {
	var out model.Plan
	if err := json.Unmarshal([]byte(llm.CleanJSON(text)), &out); err != nil {
		return model.Plan{}, false
	}
	steps := out.Steps[:0]
	for _, s := range out.Steps {
		if s.Tool == "" {
			continue
		}
		if s.Inputs == nil {
			s.Inputs = map[string]any{}
		}
		steps = append(steps, s)
	}
	out.Steps = steps
	if out.Steps == nil {
		out.Steps = []model.PlanStep{}
	}
	return out, true
}
