package tools

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sells-group/osint-cli/internal/config"
	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/pkg/hyperbrowser"
)

// Nested keys under params["hyperbrowser"].
const (
	hbScrape         = "scrape"
	hbExtract        = "extract"
	hbCrawl          = "crawl"
	hbSessionOptions = "session_options"
)

// gate bounds concurrent Hyperbrowser jobs across all three tools.
type gate struct {
	sem *semaphore.Weighted
}

func newGate(n int) *gate {
	if n < 1 {
		n = 1
	}
	return &gate{sem: semaphore.NewWeighted(int64(n))}
}

// do runs fn while holding one slot.
func (g *gate) do(ctx context.Context, fn func(ctx context.Context) (*hyperbrowser.JobStatus, error)) (*hyperbrowser.JobStatus, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer g.sem.Release(1)
	return fn(ctx)
}

// browserJob is the shared execution path of the Hyperbrowser tools.
type browserJob struct {
	base
	client  hyperbrowser.Client
	gate    *gate
	enabled bool
	timeout time.Duration
	now     func() time.Time
}

func (j *browserJob) configured() bool {
	return j.enabled && j.client != nil
}

// run starts and waits on one job and shapes the result record. urls are
// reported in meta whatever the outcome.
func (j *browserJob) run(ctx context.Context, kind hyperbrowser.Kind, req any, urls []string) model.ToolResult {
	start := j.now()
	status, err := j.gate.do(ctx, func(ctx context.Context) (*hyperbrowser.JobStatus, error) {
		return hyperbrowser.StartAndWait(ctx, j.client, kind, req, hyperbrowser.WithTimeout(j.timeout))
	})
	if err != nil {
		msg := err.Error()
		if errors.Is(err, hyperbrowser.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			msg = "timeout"
		}
		return j.fail(msg, nil).WithMeta("urls", urls)
	}

	res := model.NewResult(j.source, map[string]any{
		"job_id": status.JobID,
		"status": status.Status,
		"data":   status.Data,
	})
	if status.Error != "" {
		res.RawData["error"] = status.Error
	}
	res = res.WithMeta("urls", urls).WithMeta("duration_ms", j.now().Sub(start).Milliseconds())
	if status.JobID != "" {
		res = res.WithMeta("jobId", status.JobID)
	}
	if status.Status != "" {
		res = res.WithMeta("status", status.Status)
	}
	return res
}

func newBrowserJob(name, source string, client hyperbrowser.Client, g *gate, enabled bool, timeout time.Duration) browserJob {
	if g == nil {
		g = newGate(1)
	}
	return browserJob{
		base:    base{name: name, source: source, stage: model.StageDeep},
		client:  client,
		gate:    g,
		enabled: enabled,
		timeout: timeout,
		now:     time.Now,
	}
}

// section returns params["hyperbrowser"][key] and the session options,
// which may sit at either level.
func section(p model.Params, key string) (map[string]any, hyperbrowser.SessionOptions) {
	hb := p.Map(model.FieldHyperbrowser)
	sec, _ := hb[key].(map[string]any)
	sess, _ := hb[hbSessionOptions].(map[string]any)
	if len(sess) == 0 {
		sess, _ = sec[hbSessionOptions].(map[string]any)
	}
	return sec, hyperbrowser.SessionOptions(sess)
}

// scrapeOptions returns nil when no option is set.
func scrapeOptions(sec map[string]any) *hyperbrowser.ScrapeOptions {
	opts := &hyperbrowser.ScrapeOptions{Formats: model.Params(sec).Strings("formats")}
	set := len(opts.Formats) > 0
	if v, ok := sec["only_main_content"].(bool); ok {
		opts.OnlyMainContent = &v
		set = true
	}
	if ms, ok := number(sec["timeout_ms"]); ok {
		opts.Timeout = ms
		set = true
	}
	if !set {
		return nil
	}
	return opts
}

// number reads an integer from JSON-decoded or Go-typed values.
func number(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// HyperbrowserScrape scrapes params.hyperbrowser.scrape.urls. One URL is a
// single scrape job; several are one batch job.
type HyperbrowserScrape struct {
	browserJob
}

// NewHyperbrowserScrape creates the scrape tool.
func NewHyperbrowserScrape(client hyperbrowser.Client, g *gate, cfg config.HyperbrowserConfig) *HyperbrowserScrape {
	return &HyperbrowserScrape{newBrowserJob(NameHyperbrowserScrape, SourceHyperbrowserScrape, client, g, cfg.EnableScrape, cfg.ScrapeTimeout)}
}

// CanHandle requires scrape URLs.
func (t *HyperbrowserScrape) CanHandle(p model.Params) bool {
	sec, _ := section(p, hbScrape)
	return t.configured() && len(model.Params(sec).Strings("urls")) > 0
}

// Execute runs the scrape.
func (t *HyperbrowserScrape) Execute(ctx context.Context, p model.Params) (model.ToolResult, error) {
	sec, sess := section(p, hbScrape)
	urls := model.Params(sec).Strings("urls")
	opts := scrapeOptions(sec)

	if len(urls) == 1 {
		req := hyperbrowser.ScrapeRequest{URL: urls[0], ScrapeOptions: opts, SessionOptions: sess}
		return t.run(ctx, hyperbrowser.KindScrape, req, urls), nil
	}
	req := hyperbrowser.BatchScrapeRequest{URLs: urls, ScrapeOptions: opts, SessionOptions: sess}
	return t.run(ctx, hyperbrowser.KindBatchScrape, req, urls), nil
}

// HyperbrowserExtract runs structured extraction over
// params.hyperbrowser.extract.urls with a schema or prompt.
type HyperbrowserExtract struct {
	browserJob
}

// NewHyperbrowserExtract creates the extract tool.
func NewHyperbrowserExtract(client hyperbrowser.Client, g *gate, cfg config.HyperbrowserConfig) *HyperbrowserExtract {
	return &HyperbrowserExtract{newBrowserJob(NameHyperbrowserExtract, SourceHyperbrowserExtract, client, g, cfg.EnableExtract, cfg.ExtractTimeout)}
}

// CanHandle requires URLs plus a schema or prompt.
func (t *HyperbrowserExtract) CanHandle(p model.Params) bool {
	sec, _ := section(p, hbExtract)
	ps := model.Params(sec)
	return t.configured() && len(ps.Strings("urls")) > 0 && (ps.Has("schema") || ps.Has("prompt"))
}

// Execute runs the extraction.
func (t *HyperbrowserExtract) Execute(ctx context.Context, p model.Params) (model.ToolResult, error) {
	sec, sess := section(p, hbExtract)
	ps := model.Params(sec)
	urls := ps.Strings("urls")
	schema, _ := sec["schema"].(map[string]any)
	req := hyperbrowser.ExtractRequest{
		URLs:           urls,
		Prompt:         ps.String("prompt"),
		Schema:         schema,
		SessionOptions: sess,
	}
	if n, ok := number(sec["max_links"]); ok {
		req.MaxLinks = n
	}
	return t.run(ctx, hyperbrowser.KindExtract, req, urls), nil
}

// HyperbrowserCrawl crawls from params.hyperbrowser.crawl.url.
type HyperbrowserCrawl struct {
	browserJob
}

// NewHyperbrowserCrawl creates the crawl tool.
func NewHyperbrowserCrawl(client hyperbrowser.Client, g *gate, cfg config.HyperbrowserConfig) *HyperbrowserCrawl {
	return &HyperbrowserCrawl{newBrowserJob(NameHyperbrowserCrawl, SourceHyperbrowserCrawl, client, g, cfg.EnableCrawl, cfg.CrawlTimeout)}
}

// CanHandle requires a start URL.
func (t *HyperbrowserCrawl) CanHandle(p model.Params) bool {
	sec, _ := section(p, hbCrawl)
	return t.configured() && model.Params(sec).Has("url")
}

// Execute runs the crawl.
func (t *HyperbrowserCrawl) Execute(ctx context.Context, p model.Params) (model.ToolResult, error) {
	sec, sess := section(p, hbCrawl)
	ps := model.Params(sec)
	start := ps.String("url")
	req := hyperbrowser.CrawlRequest{
		URL:             start,
		IncludePatterns: ps.Strings("include_patterns"),
		ExcludePatterns: ps.Strings("exclude_patterns"),
		ScrapeOptions:   scrapeOptions(sec),
		SessionOptions:  sess,
	}
	if n, ok := number(sec["max_pages"]); ok {
		req.MaxPages = n
	}
	return t.run(ctx, hyperbrowser.KindCrawl, req, []string{start}), nil
}
