// Package tools holds the concrete lookup adapters and the explicit list
// that registers them.
package tools

import (
	"context"
	"net/http"
	"time"

	"github.com/sells-group/osint-cli/internal/config"
	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/internal/services"
	"github.com/sells-group/osint-cli/internal/tool"
	"github.com/sells-group/osint-cli/pkg/espy"
	"github.com/sells-group/osint-cli/pkg/github"
	"github.com/sells-group/osint-cli/pkg/hyperbrowser"
	"github.com/sells-group/osint-cli/pkg/numverify"
	"github.com/sells-group/osint-cli/pkg/scrapingdog"
	"github.com/sells-group/osint-cli/pkg/serpapi"
)

// Tool names.
const (
	NameGitHub              = "github"
	NameGitHubExtras        = "github_extras"
	NameNumverify           = "numverify"
	NameHolehe              = "holehe_cli"
	NameIgnorant            = "ignorant_cli"
	NameGHunt               = "ghunt"
	NameLinkedInFinder      = "linkedin_finder"
	NameXFinder             = "x_finder"
	NameLinkedInVerify      = "linkedin_verify"
	NameXVerify             = "x_verify"
	NameESPYEmail           = "espy_email"
	NameESPYPhone           = "espy_phone"
	NameESPYName            = "espy_name"
	NameESPYDeepweb         = "espy_deepweb"
	NameESPYCourtRecords    = "espy_court_records"
	NameHyperbrowserScrape  = "hyperbrowser_scrape"
	NameHyperbrowserExtract = "hyperbrowser_extract"
	NameHyperbrowserCrawl   = "hyperbrowser_crawl"
)

// Source identifiers written into every ToolResult. Resolution and
// analysis key their rules on these.
const (
	SourceGitHub              = "GitHub"
	SourceGitHubExtras        = "GitHub-Extras"
	SourceNumverify           = "Numverify"
	SourceHolehe              = "Holehe"
	SourceIgnorant            = "Ignorant"
	SourceGHunt               = "GHunt"
	SourceLinkedInFinder      = "LinkedIn-Finder"
	SourceXFinder             = "X-Finder"
	SourceLinkedInVerify      = "LinkedIn-Verify"
	SourceXVerify             = "X-Verify"
	SourceESPYEmail           = "ESPY-Email"
	SourceESPYPhone           = "ESPY-Phone"
	SourceESPYName            = "ESPY-Name"
	SourceESPYDeepweb         = "ESPY-Deepweb"
	SourceESPYCourtRecords    = "ESPY-CourtRecords"
	SourceHyperbrowserScrape  = "Hyperbrowser-Scrape"
	SourceHyperbrowserExtract = "Hyperbrowser-Extract"
	SourceHyperbrowserCrawl   = "Hyperbrowser-Crawl"
)

// Verification lists the tools the orchestrator runs explicitly after
// discovery. They are deep-stage so the broad fan-outs skip them.
var Verification = []string{NameLinkedInVerify, NameXVerify}

// Deps bundles the shared clients the adapters call. Nil clients are
// built from Config.
type Deps struct {
	Config       *config.Config
	Services     *services.Table
	GitHub       *github.Client
	Numverify    *numverify.Client
	SerpAPI      *serpapi.Client
	ScrapingDog  *scrapingdog.Client
	ESPY         *espy.Client
	Hyperbrowser hyperbrowser.Client
	HTTP         *http.Client
	Runner       CommandRunner
}

// Default returns every tool in registration order. Order matters: the
// registry gathers results in this order and resolution keeps the first
// value seen for each field.
func Default(d Deps) []tool.Tool {
	d = d.withDefaults()
	cfg := d.Config
	gate := newGate(cfg.Hyperbrowser.Concurrency)

	return []tool.Tool{
		NewGitHub(d.GitHub, cfg.Tools.GitHub),
		NewGitHubExtras(d.GitHub, cfg.Tools.GitHubExtras),
		NewNumverify(d.Numverify, cfg.Tools.Numverify),
		NewHolehe(d.Runner, d.Services, cfg.Holehe),
		NewIgnorant(d.Runner, d.Services, cfg.Ignorant),
		NewGHunt(d.HTTP, GHuntBaseURL, cfg.Tools.GHunt),
		NewLinkedInFinder(d.SerpAPI, cfg.Tools.LinkedInFinder),
		NewXFinder(d.SerpAPI, cfg.Tools.XFinder),
		NewLinkedInVerify(d.ScrapingDog, cfg.Tools.LinkedInVerify, cfg.ScrapingDog.DefaultCountry),
		NewXVerify(d.ScrapingDog, cfg.Tools.XVerify),
		NewESPYEmail(d.ESPY),
		NewESPYPhone(d.ESPY),
		NewESPYName(d.ESPY),
		NewESPYDeepweb(d.ESPY),
		NewESPYCourtRecords(d.ESPY),
		NewHyperbrowserScrape(d.Hyperbrowser, gate, cfg.Hyperbrowser),
		NewHyperbrowserExtract(d.Hyperbrowser, gate, cfg.Hyperbrowser),
		NewHyperbrowserCrawl(d.Hyperbrowser, gate, cfg.Hyperbrowser),
	}
}

func (d Deps) withDefaults() Deps {
	if d.Config == nil {
		d.Config = &config.Config{}
	}
	cfg := d.Config
	if d.Services == nil {
		d.Services = services.Default()
	}
	if d.HTTP == nil {
		d.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if d.Runner == nil {
		d.Runner = ExecRunner{}
	}
	if d.GitHub == nil {
		var opts []github.Option
		if cfg.GitHub.BaseURL != "" {
			opts = append(opts, github.WithBaseURL(cfg.GitHub.BaseURL))
		}
		d.GitHub = github.NewClient(opts...)
	}
	if d.Numverify == nil {
		var opts []numverify.Option
		if cfg.Numverify.BaseURL != "" {
			opts = append(opts, numverify.WithBaseURL(cfg.Numverify.BaseURL))
		}
		d.Numverify = numverify.NewClient(cfg.Numverify.Key, opts...)
	}
	if d.SerpAPI == nil {
		var opts []serpapi.Option
		if cfg.SerpAPI.BaseURL != "" {
			opts = append(opts, serpapi.WithBaseURL(cfg.SerpAPI.BaseURL))
		}
		d.SerpAPI = serpapi.NewClient(cfg.SerpAPI.Key, opts...)
	}
	if d.ScrapingDog == nil {
		var opts []scrapingdog.Option
		if cfg.ScrapingDog.BaseURL != "" {
			opts = append(opts, scrapingdog.WithBaseURL(cfg.ScrapingDog.BaseURL))
		}
		d.ScrapingDog = scrapingdog.NewClient(cfg.ScrapingDog.Key, opts...)
	}
	if d.ESPY == nil {
		opts := []espy.Option{
			espy.WithPollInterval(cfg.ESPY.PollInterval),
			espy.WithPollAttempts(cfg.ESPY.PollAttempts),
			espy.WithMinInterval(cfg.ESPY.MinInterval),
		}
		if cfg.ESPY.BaseURL != "" {
			opts = append(opts, espy.WithBaseURL(cfg.ESPY.BaseURL))
		}
		d.ESPY = espy.NewClient(cfg.ESPY.Key, opts...)
	}
	if d.Hyperbrowser == nil && cfg.Hyperbrowser.Key != "" {
		var opts []hyperbrowser.Option
		if cfg.Hyperbrowser.BaseURL != "" {
			opts = append(opts, hyperbrowser.WithBaseURL(cfg.Hyperbrowser.BaseURL))
		}
		d.Hyperbrowser = hyperbrowser.NewClient(cfg.Hyperbrowser.Key, opts...)
	}
	return d
}

// withTimeout bounds ctx when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// errorString reports context deadline errors as "timeout" and anything
// else by message.
func errorString(ctx context.Context, err error) string {
	if ctx.Err() == context.DeadlineExceeded {
		return "timeout"
	}
	return err.Error()
}

// base carries the identity every adapter shares.
type base struct {
	name   string
	source string
	stage  model.Stage
}

func (b base) Name() string { return b.name }

func (b base) Stage() model.Stage { return b.stage }

// fail builds a raw_data.error record for this adapter's source.
func (b base) fail(msg string, extra map[string]any) model.ToolResult {
	return model.ErrorResult(b.source, msg, extra)
}
