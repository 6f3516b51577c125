package tools

import (
	"context"
	"math"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/osint-cli/internal/config"
	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/pkg/serpapi"
)

var (
	nonAlpha   = regexp.MustCompile(`[^a-z ]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// subject is the search input a finder builds queries from.
type subject struct {
	name     string
	username string
	company  string
	city     string
	context  string
}

// platform describes how one site is searched and scored.
type platform struct {
	queries func(s subject) []string
	accept  func(link string) bool
	score   func(text string, s subject) float64
}

// Finder searches Bing through SerpAPI for profile URLs on one platform.
type Finder struct {
	base
	client *serpapi.Client
	cfg    config.FinderConfig
	plat   platform
	handle func(p model.Params) bool
}

// NewLinkedInFinder creates the LinkedIn profile finder.
func NewLinkedInFinder(client *serpapi.Client, cfg config.FinderConfig) *Finder {
	return &Finder{
		base:   base{name: NameLinkedInFinder, source: SourceLinkedInFinder, stage: model.StageShallow},
		client: client,
		cfg:    cfg,
		plat: platform{
			queries: linkedInQueries,
			accept:  acceptLinkedIn,
			score:   linkedInScore,
		},
		handle: func(p model.Params) bool { return p.Has(model.FieldName) },
	}
}

// NewXFinder creates the X (Twitter) profile finder.
func NewXFinder(client *serpapi.Client, cfg config.FinderConfig) *Finder {
	return &Finder{
		base:   base{name: NameXFinder, source: SourceXFinder, stage: model.StageShallow},
		client: client,
		cfg:    cfg,
		plat: platform{
			queries: xQueries,
			accept:  acceptX,
			score:   xScore,
		},
		handle: func(p model.Params) bool { return p.Has(model.FieldName) || p.Has(model.FieldUsername) },
	}
}

// CanHandle requires the finder to be enabled, a SerpAPI key, and a name
// (X also accepts a username).
func (t *Finder) CanHandle(p model.Params) bool {
	return t.cfg.Enabled && t.client != nil && t.client.Configured() && t.handle(p)
}

type scored struct {
	url   string
	score float64
}

// Execute runs the query ladder and ranks the distinct profile URLs found.
func (t *Finder) Execute(ctx context.Context, p model.Params) (model.ToolResult, error) {
	s := subject{
		name:     p.String(model.FieldName),
		username: strings.TrimPrefix(p.String(model.FieldUsername), "@"),
		company:  p.String(model.FieldCompany),
		city:     p.String(model.FieldLocation),
		context:  p.String(model.FieldSearchHint),
	}
	if t.name == NameXFinder {
		s.context = p.String(model.FieldFreeTextContext)
	}

	mkt := p.String(model.FieldMarket)
	if mkt == "" {
		mkt = t.cfg.DefaultMarket
	}
	if mkt == "" {
		mkt = "en-US"
	}

	queries := t.plat.queries(s)
	if t.cfg.MaxQueries > 0 && len(queries) > t.cfg.MaxQueries {
		queries = queries[:t.cfg.MaxQueries]
	}

	ctx, cancel := withTimeout(ctx, t.cfg.Timeout*time.Duration(max(1, len(queries))))
	defer cancel()

	var ranked []scored
	best := map[string]int{}
	for _, q := range queries {
		results, err := t.client.Search(ctx, q, mkt)
		if err != nil {
			zap.L().Warn("finder: search failed", zap.String("tool", t.name), zap.String("query", q), zap.Error(err))
			continue
		}
		for _, r := range results {
			link := cleanProfileURL(r.Link)
			if link == "" || !t.plat.accept(link) {
				continue
			}
			sc := t.plat.score(r.Title+" "+r.Snippet, s)
			if i, ok := best[link]; ok {
				ranked[i].score = math.Max(ranked[i].score, sc)
				continue
			}
			best[link] = len(ranked)
			ranked = append(ranked, scored{url: link, score: sc})
		}
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})
	limit := t.cfg.MaxResults
	if limit <= 0 {
		limit = 3
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	candidates := make([]any, 0, len(ranked))
	bestURL := ""
	for i, r := range ranked {
		if i == 0 {
			bestURL = r.url
		}
		candidates = append(candidates, map[string]any{
			"url":        r.url,
			"confidence": math.Round(r.score*1000) / 1000,
		})
	}

	return model.NewResult(t.source, map[string]any{
		"candidates": candidates,
		"best_url":   bestURL,
		"queries":    queries,
		"engine":     serpapi.Engine,
		"mkt":        mkt,
	}), nil
}

// cleanProfileURL drops the query string and trailing slash.
func cleanProfileURL(link string) string {
	link = strings.TrimSpace(link)
	if i := strings.IndexByte(link, '?'); i >= 0 {
		link = link[:i]
	}
	return strings.TrimRight(link, "/")
}

func quoted(s string) string {
	if s == "" {
		return ""
	}
	return ` "` + s + `"`
}

func clip(s string, n int) string {
	s = whitespace.ReplaceAllString(s, " ")
	if r := []rune(s); len(r) > n {
		s = string(r[:n])
	}
	return strings.TrimSpace(s)
}

// dedupe keeps the first occurrence of each non-empty query.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, q := range in {
		q = strings.TrimSpace(q)
		if q != "" && !slices.Contains(out, q) {
			out = append(out, q)
		}
	}
	return out
}

func linkedInQueries(s subject) []string {
	const site = "site:linkedin.com/in"
	n, c, ct := quoted(s.name), quoted(s.company), quoted(s.city)
	hint := quoted(clip(s.context, 50))
	return dedupe([]string{
		site + n + c + ct + hint,
		site + n + c,
		site + n + ct,
		site + n,
	})
}

func xQueries(s subject) []string {
	n, u, c, ct := quoted(s.name), quoted(s.username), quoted(s.company), quoted(s.city)
	ctx := quoted(clip(s.context, 120))
	var out []string
	for _, tail := range []string{n + u + c + ct + ctx, n + u + c, n + u} {
		out = append(out, "site:twitter.com"+tail, "site:x.com"+tail)
	}
	return dedupe(out)
}

var xExcluded = []string{"/status/", "/i/", "/login", "/home", "/intent/"}

func acceptX(link string) bool {
	host, path, ok := splitLink(link)
	if !ok || (!onDomain(host, "twitter.com") && !onDomain(host, "x.com")) {
		return false
	}
	if strings.Trim(path, "/") == "" {
		return false
	}
	for _, seg := range xExcluded {
		if strings.Contains(path, seg) {
			return false
		}
	}
	return true
}

func acceptLinkedIn(link string) bool {
	host, path, ok := splitLink(link)
	return ok && onDomain(host, "linkedin.com") && strings.HasPrefix(path, "/in/")
}

// splitLink returns the lowercased hostname and the path of an absolute URL.
func splitLink(link string) (host, path string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Hostname() == "" {
		return "", "", false
	}
	return strings.ToLower(u.Hostname()), u.Path, true
}

// onDomain reports whether host is domain or one of its subdomains.
func onDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// nameScore is 1.0 when the full name appears in text, 0.6 when only its
// first token does.
func nameScore(text, name string) float64 {
	nameNorm := strings.TrimSpace(nonAlpha.ReplaceAllString(strings.ToLower(name), ""))
	if nameNorm == "" {
		return 0
	}
	textNorm := nonAlpha.ReplaceAllString(text, "")
	if strings.Contains(textNorm, nameNorm) {
		return 1.0
	}
	if first := strings.Fields(nameNorm)[0]; strings.Contains(textNorm, first) {
		return 0.6
	}
	return 0
}

func contains(text, needle string) bool {
	return needle != "" && strings.Contains(text, strings.ToLower(needle))
}

func linkedInScore(text string, s subject) float64 {
	text = strings.ToLower(text)
	score := 0.5 * nameScore(text, s.name)
	if contains(text, s.company) {
		score += 0.3
	}
	if contains(text, s.city) {
		score += 0.2
	}
	return clamp01(score)
}

func xScore(text string, s subject) float64 {
	text = strings.ToLower(text)
	score := 0.5 * nameScore(text, s.name)
	if contains(text, s.username) {
		score += 0.4
	}
	if contains(text, s.company) {
		score += 0.2
	}
	if contains(text, s.city) {
		score += 0.2
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
