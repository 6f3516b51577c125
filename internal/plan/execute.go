package plan

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/osint-cli/internal/config"
	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/internal/tool"
	"github.com/sells-group/osint-cli/internal/tools"
)

var defaultFormats = []string{"markdown", "links"}

// Executor runs the scrape steps of a plan through the registry. Only
// hyperbrowser_scrape steps run; their URLs are filtered by the host
// allowlist and capped, and at most MaxSteps steps are considered no
// matter what budget the plan advertises.
type Executor struct {
	registry *tool.Registry
	cfg      config.ScrapeConfig
	timeout  time.Duration
}

// NewExecutor creates an Executor. timeout is the per-page scrape timeout
// passed to Hyperbrowser.
func NewExecutor(registry *tool.Registry, cfg config.ScrapeConfig, timeout time.Duration) *Executor {
	return &Executor{registry: registry, cfg: cfg, timeout: timeout}
}

func (e *Executor) maxURLs() int {
	if e.cfg.MaxURLsPerRequest > 0 {
		return e.cfg.MaxURLsPerRequest
	}
	return 5
}

func (e *Executor) maxSteps() int {
	if e.cfg.MaxSteps > 0 {
		return e.cfg.MaxSteps
	}
	return model.DefaultPlanBudget().MaxSteps
}

// Execute runs p and returns one result per executed or rejected step.
func (e *Executor) Execute(ctx context.Context, p model.Plan) []model.ToolResult {
	if !e.cfg.Enabled {
		return []model.ToolResult{model.ErrorResult(tools.SourceHyperbrowserScrape, "scrape_disabled", nil)}
	}

	steps := p.Steps
	if len(steps) > e.maxSteps() {
		zap.L().Info("plan: truncating steps", zap.Int("proposed", len(steps)), zap.Int("max_steps", e.maxSteps()))
		steps = steps[:e.maxSteps()]
	}

	results := []model.ToolResult{}
	for _, step := range steps {
		if step.Tool != tools.NameHyperbrowserScrape {
			continue
		}
		urls := model.Params(step.Inputs).Strings("urls")
		if len(urls) == 0 {
			continue
		}
		allowed := e.filter(urls)
		if len(allowed) == 0 {
			results = append(results, model.ErrorResult(tools.SourceHyperbrowserScrape, "no_allowed_urls", nil).WithMeta("urls", urls))
			continue
		}
		results = append(results, e.scrape(ctx, step, allowed))
	}
	return results
}

func (e *Executor) scrape(ctx context.Context, step model.PlanStep, urls []string) model.ToolResult {
	formats := model.Params(step.Inputs).Strings("formats")
	if len(formats) == 0 {
		formats = defaultFormats
	}
	onlyMain := true
	if v, ok := step.Inputs["only_main_content"].(bool); ok {
		onlyMain = v
	}

	params := model.Params{model.FieldHyperbrowser: map[string]any{
		"scrape": map[string]any{
			"urls":              urls,
			"formats":           formats,
			"only_main_content": onlyMain,
			"timeout_ms":        int(e.timeout.Milliseconds()),
		},
	}}

	t := e.registry.Get(tools.NameHyperbrowserScrape)
	if t == nil || !t.CanHandle(params) {
		return model.ErrorResult(tools.SourceHyperbrowserScrape, "scrape_unavailable", nil).WithMeta("urls", urls)
	}
	out, _ := e.registry.Run(ctx, params, []tool.Tool{t}, model.StageDeep)
	if len(out) == 0 {
		return model.ErrorResult(tools.SourceHyperbrowserScrape, "scrape_unavailable", nil).WithMeta("urls", urls)
	}
	res := out[0]
	if res.Source == model.SourceError {
		return model.ErrorResult(tools.SourceHyperbrowserScrape, res.Error, nil).WithMeta("urls", urls)
	}
	return res
}

// filter keeps URLs whose host is an allowlisted host or one of its
// subdomains, up to the per-request cap.
func (e *Executor) filter(urls []string) []string {
	limit := e.maxURLs()
	var out []string
	for _, raw := range urls {
		if len(out) >= limit {
			break
		}
		if hostAllowed(raw, e.cfg.AllowlistHosts) {
			out = append(out, raw)
		}
	}
	return out
}

func hostAllowed(raw string, allowlist []string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, h := range allowlist {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" && (host == h || strings.HasSuffix(host, "."+h)) {
			return true
		}
	}
	return false
}
