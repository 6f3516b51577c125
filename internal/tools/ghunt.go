package tools

import (
	"context"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osint-cli/internal/config"
	"github.com/sells-group/osint-cli/internal/model"
)

// GHuntBaseURL is the public Gmail OSINT mirror queried by GHunt.
const GHuntBaseURL = "https://gmail-osint.activetk.jp"

var (
	gaiaPattern       = regexp.MustCompile(`Gaia ID\s*:\s*(\d+)`)
	customPicPattern  = regexp.MustCompile(`(?is)Custom\s+profile\s+picture\s*!.*?=>\s*(https://[^\s<>"']+)`)
	avatarHostPattern = regexp.MustCompile(`https://(?:lh[356]\.googleusercontent\.com|yt3\.ggpht\.com)/[^\s"'<>]+`)
	reviewsPattern    = regexp.MustCompile(`https://www\.google\.com/maps/contrib/(\d+)/reviews`)
)

// GHunt looks up the Google account behind a gmail.com address.
type GHunt struct {
	base
	http    *http.Client
	baseURL string
	cfg     config.ToolToggle
	now     func() time.Time
}

// NewGHunt creates the GHunt tool.
func NewGHunt(hc *http.Client, baseURL string, cfg config.ToolToggle) *GHunt {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &GHunt{
		base:    base{name: NameGHunt, source: SourceGHunt, stage: model.StageShallow},
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
		cfg:     cfg,
		now:     time.Now,
	}
}

// CanHandle requires a gmail.com address.
func (t *GHunt) CanHandle(p model.Params) bool {
	return t.cfg.Enabled && strings.HasSuffix(strings.ToLower(p.String(model.FieldEmail)), "@gmail.com")
}

// Execute fetches the provider page and extracts the Google account hints.
func (t *GHunt) Execute(ctx context.Context, p model.Params) (model.ToolResult, error) {
	email := strings.ToLower(p.String(model.FieldEmail))
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return t.fail("invalid_email", nil), nil
	}
	if domain != "gmail.com" || local == "" {
		return t.fail("unsupported_domain", nil), nil
	}

	ctx, cancel := withTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	providerURL := t.baseURL + "/" + url.PathEscape(local)
	page, err := t.fetch(ctx, providerURL)
	if err != nil {
		return t.fail(errorString(ctx, err), nil), nil
	}

	gaia := firstGroup(gaiaPattern, page)
	osint := map[string]any{
		"gaia_id":                gaia,
		"profile_image_url":      profileImage(page),
		"reviews_url":            reviewsURL(page, gaia),
		"reviews_count":          nil,
		"custom_profile_picture": strings.Contains(page, "Custom profile picture"),
		"fetched_at":             t.now().UTC().Format(time.RFC3339),
		"source":                 t.baseURL,
	}
	if strings.Contains(page, "No review.") {
		osint["reviews_count"] = 0
	}

	res := model.NewResult(t.source, map[string]any{
		"email":        email,
		"google_osint": osint,
	})
	return res.WithMeta("provider_url", providerURL), nil
}

func (t *GHunt) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return "", eris.Wrap(err, "ghunt: create request")
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "ghunt: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", eris.Errorf("ghunt: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "ghunt: read body")
	}
	return string(body), nil
}

func profileImage(page string) string {
	text := html.UnescapeString(page)
	if u := firstGroup(customPicPattern, text); u != "" {
		return u
	}
	return avatarHostPattern.FindString(text)
}

func reviewsURL(page, gaia string) string {
	if m := reviewsPattern.FindString(page); m != "" {
		return m
	}
	if gaia != "" {
		return "https://www.google.com/maps/contrib/" + gaia + "/reviews"
	}
	return ""
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return ""
}
