package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osint-cli/internal/analysis"
	"github.com/sells-group/osint-cli/internal/config"
	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/pkg/espy"
	"github.com/sells-group/osint-cli/pkg/github"
	"github.com/sells-group/osint-cli/pkg/hyperbrowser"
	"github.com/sells-group/osint-cli/pkg/numverify"
	"github.com/sells-group/osint-cli/pkg/scrapingdog"
)

func TestDefault_Order(t *testing.T) {
	all := Default(Deps{Config: &config.Config{}})

	names := make([]string, len(all))
	for i, tl := range all {
		names[i] = tl.Name()
	}
	assert.Equal(t, []string{
		NameGitHub, NameGitHubExtras, NameNumverify, NameHolehe, NameIgnorant, NameGHunt,
		NameLinkedInFinder, NameXFinder, NameLinkedInVerify, NameXVerify,
		NameESPYEmail, NameESPYPhone, NameESPYName, NameESPYDeepweb, NameESPYCourtRecords,
		NameHyperbrowserScrape, NameHyperbrowserExtract, NameHyperbrowserCrawl,
	}, names)

	for _, tl := range all {
		switch tl.Name() {
		case NameLinkedInVerify, NameXVerify, NameESPYEmail, NameESPYPhone, NameESPYName,
			NameESPYDeepweb, NameESPYCourtRecords, NameHyperbrowserScrape, NameHyperbrowserExtract, NameHyperbrowserCrawl:
			assert.Equal(t, model.StageDeep, tl.Stage(), tl.Name())
		default:
			assert.Equal(t, model.StageShallow, tl.Stage(), tl.Name())
		}
	}
}

func TestSourcesMatchAnalysis(t *testing.T) {
	assert.Equal(t, analysis.SourceGitHub, SourceGitHub)
	assert.Equal(t, analysis.SourceGitHubExtras, SourceGitHubExtras)
	assert.Equal(t, analysis.SourceHolehe, SourceHolehe)
	assert.Equal(t, analysis.SourceGHunt, SourceGHunt)
	assert.Equal(t, analysis.SourceIgnorant, SourceIgnorant)
	assert.Equal(t, analysis.SourceNumverify, SourceNumverify)
	assert.Equal(t, analysis.SourceESPYEmail, SourceESPYEmail)
	assert.Equal(t, analysis.SourceESPYPhone, SourceESPYPhone)
}

func TestDefault_UnconfiguredToolsDecline(t *testing.T) {
	all := Default(Deps{Config: &config.Config{}})
	p := model.Params{
		"name":     "Ada Lovelace",
		"email":    "ada@gmail.com",
		"phone":    "+14155550100",
		"username": "ada",
		"country":  "US",
	}
	for _, tl := range all {
		switch tl.Name() {
		case NameHolehe, NameIgnorant:
			assert.True(t, tl.CanHandle(p), tl.Name())
		default:
			assert.False(t, tl.CanHandle(p), tl.Name())
		}
	}
}

const octocatPage = `<html><body>
<span itemprop="name">The Octocat</span>
<div data-bio-text="">Loves code <a href="https://octo.blog">blog</a></div>
<li itemprop="homeLocation"><span>San Francisco</span></li>
<li itemprop="worksFor">@github</li>
<a href="https://github.com/octocat/followers"><span class="text-bold">12</span> followers</a>
</body></html>`

func TestGitHub_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/octocat" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(octocatPage))
	}))
	defer srv.Close()

	client := github.NewClient(github.WithBaseURL(srv.URL))
	on := config.ToolToggle{Enabled: true, Timeout: time.Second}

	gh := NewGitHub(client, on)
	res, err := gh.Execute(context.Background(), model.Params{"username": "@octocat"})
	require.NoError(t, err)
	assert.Equal(t, SourceGitHub, res.Source)
	assert.Equal(t, "octocat", res.RawData["username"])
	assert.Equal(t, "The Octocat", res.RawData["name"])
	assert.Equal(t, "San Francisco", res.RawData["location"])
	assert.Equal(t, 12, res.RawData["followers"])
	assert.NotContains(t, res.RawData, "following")

	extras := NewGitHubExtras(client, on)
	res, err = extras.Execute(context.Background(), model.Params{"username": "octocat"})
	require.NoError(t, err)
	assert.Equal(t, SourceGitHubExtras, res.Source)
	assert.Equal(t, "https://octo.blog", res.RawData["website"])
	assert.Equal(t, "octo.blog", res.RawData["domain"])
	assert.Equal(t, "@github", res.RawData["company"])
	assert.Equal(t, []string{}, res.RawData["organizations"])

	res, err = gh.Execute(context.Background(), model.Params{"username": "ghost"})
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Equal(t, "ghost", res.RawData["username"])
}

func TestGitHub_CanHandle(t *testing.T) {
	client := github.NewClient()
	assert.True(t, NewGitHub(client, config.ToolToggle{Enabled: true}).CanHandle(model.Params{"username": "ada"}))
	assert.False(t, NewGitHub(client, config.ToolToggle{Enabled: true}).CanHandle(model.Params{"email": "a@b.c"}))
	assert.False(t, NewGitHubExtras(client, config.ToolToggle{}).CanHandle(model.Params{"username": "ada"}))
}

func TestNumverify_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "+14155550100", r.URL.Query().Get("number"))
		_, _ = w.Write([]byte(`{"valid":true,"country_code":"US","location":"San Francisco","carrier":"AT&T","line_type":"mobile"}`))
	}))
	defer srv.Close()

	nv := NewNumverify(numverify.NewClient("key", numverify.WithBaseURL(srv.URL)), config.ToolToggle{Enabled: true})
	p := model.Params{"phone": "+14155550100"}
	require.True(t, nv.CanHandle(p))

	res, err := nv.Execute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, SourceNumverify, res.Source)
	assert.Equal(t, true, res.RawData["valid"])
	assert.Equal(t, "US", res.RawData["country_code"])
}

func TestGHunt_Execute(t *testing.T) {
	page := `<html><body>
	<p>Gaia ID : 1234567890</p>
	<p>Custom profile picture !<br>=> https://lh3.googleusercontent.com/a/abc</p>
	<p>No review.</p>
	</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ada.lovelace", r.URL.Path)
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	g := NewGHunt(srv.Client(), srv.URL, config.ToolToggle{Enabled: true, Timeout: time.Second})
	g.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	p := model.Params{"email": "Ada.Lovelace@gmail.com"}
	require.True(t, g.CanHandle(p))
	assert.False(t, g.CanHandle(model.Params{"email": "ada@example.com"}))

	res, err := g.Execute(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, "ada.lovelace@gmail.com", res.RawData["email"])
	osint := res.RawData["google_osint"].(map[string]any)
	assert.Equal(t, "1234567890", osint["gaia_id"])
	assert.Equal(t, "https://lh3.googleusercontent.com/a/abc", osint["profile_image_url"])
	assert.Equal(t, "https://www.google.com/maps/contrib/1234567890/reviews", osint["reviews_url"])
	assert.Equal(t, 0, osint["reviews_count"])
	assert.Equal(t, true, osint["custom_profile_picture"])
	assert.Equal(t, "2026-01-02T03:04:05Z", osint["fetched_at"])
	assert.Equal(t, srv.URL+"/ada.lovelace", res.Meta["provider_url"])
}

func TestGHunt_RejectsOtherDomains(t *testing.T) {
	g := NewGHunt(nil, GHuntBaseURL, config.ToolToggle{Enabled: true})

	res, err := g.Execute(context.Background(), model.Params{"email": "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "unsupported_domain", res.RawError())

	res, err = g.Execute(context.Background(), model.Params{"email": "not-an-email"})
	require.NoError(t, err)
	assert.Equal(t, "invalid_email", res.RawError())
}

func TestLinkedInVerify_Execute(t *testing.T) {
	page := `<html><body><h1>Ada Lovelace</h1>
	<div class="text-body-medium">Mathematician</div>
	<span>London, United Kingdom</span></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://www.linkedin.com/in/ada", r.URL.Query().Get("url"))
		assert.Equal(t, "GB", r.URL.Query().Get("country"))
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	v := NewLinkedInVerify(scrapingdog.NewClient("key", scrapingdog.WithBaseURL(srv.URL)), config.ToolToggle{Enabled: true}, "")
	p := model.Params{"linkedin_finder_best_url": "https://www.linkedin.com/in/ada", "country": "GB"}
	require.True(t, v.CanHandle(p))
	assert.False(t, v.CanHandle(model.Params{"name": "Ada"}))

	res, err := v.Execute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, SourceLinkedInVerify, res.Source)
	assert.Equal(t, "Ada Lovelace", res.RawData["name"])
	assert.Equal(t, "Mathematician", res.RawData["headline"])
	assert.Equal(t, "London, United Kingdom", res.RawData["location"])
	assert.Equal(t, "https://www.linkedin.com/in/ada", res.RawData["url"])
}

func TestXVerify_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://x.com/ada", r.URL.Query().Get("profileId"))
		_, _ = w.Write([]byte(`{"name":"Ada","location":"London"}`))
	}))
	defer srv.Close()

	v := NewXVerify(scrapingdog.NewClient("key", scrapingdog.WithBaseURL(srv.URL)), config.ToolToggle{Enabled: true})
	res, err := v.Execute(context.Background(), model.Params{"x_finder_best_url": "https://x.com/ada"})
	require.NoError(t, err)
	assert.Equal(t, SourceXVerify, res.Source)
	assert.Equal(t, "London", res.RawData["location"])
}

func newESPYServer(t *testing.T, status string, body *map[string]any) *espy.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if body != nil {
				assert.NoError(t, json.NewDecoder(r.Body).Decode(body))
			}
			_, _ = w.Write([]byte(`{"requestId":"req-9"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"` + status + `","data":[{"name":"Ada"}]}`))
	}))
	t.Cleanup(srv.Close)
	return espy.NewClient("secret",
		espy.WithBaseURL(srv.URL),
		espy.WithMinInterval(0),
		espy.WithPollAttempts(2),
		espy.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
}

func TestESPY_Execute(t *testing.T) {
	var body map[string]any
	e := NewESPYEmail(newESPYServer(t, "completed", &body))

	res, err := e.Execute(context.Background(), model.Params{"email": "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, SourceESPYEmail, res.Source)
	assert.Equal(t, "completed", res.RawData["status"])
	assert.Equal(t, "ada@example.com", body["value"])
}

func TestESPY_PollTimeout(t *testing.T) {
	e := NewESPYPhone(newESPYServer(t, "pending", nil))

	res, err := e.Execute(context.Background(), model.Params{"phone": "+14155550100"})
	require.NoError(t, err)
	assert.Equal(t, "timeout", res.RawError())
	assert.Equal(t, "req-9", res.RawData["request_id"])
	assert.Equal(t, 2, res.RawData["attempts"])
	assert.Equal(t, "pending", res.RawData["last_response"].(map[string]any)["status"])
	assert.Equal(t, "req-9", res.Meta["request_id"])
}

func TestESPY_SubjectSelection(t *testing.T) {
	var body map[string]any
	court := NewESPYCourtRecords(newESPYServer(t, "done", &body))

	assert.False(t, court.CanHandle(model.Params{"name": "Ada Lovelace", "country": "GB"}))
	p := model.Params{"name": "Ada Lovelace", "country": "us", "location": "Boston"}
	require.True(t, court.CanHandle(p))

	_, err := court.Execute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace Boston", body["keyphrase"])
	assert.NotContains(t, body, "value")

	deep := NewESPYDeepweb(espy.NewClient("secret"))
	assert.Equal(t, espy.Input{Value: "+1555"}, deep.input(model.Params{"phone": "+1555"}))
	assert.Equal(t, espy.Input{Value: "a@b.c"}, deep.input(model.Params{"phone": "+1555", "email": "a@b.c"}))
}

// fakeBrowser completes every job on the first poll.
type fakeBrowser struct {
	mu     sync.Mutex
	kinds  []hyperbrowser.Kind
	reqs   []any
	status string
}

func (f *fakeBrowser) StartJob(_ context.Context, kind hyperbrowser.Kind, req any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
	f.reqs = append(f.reqs, req)
	return "job-1", nil
}

func (f *fakeBrowser) GetJob(_ context.Context, _ hyperbrowser.Kind, id string) (*hyperbrowser.JobStatus, error) {
	status := f.status
	if status == "" {
		status = hyperbrowser.StatusCompleted
	}
	return &hyperbrowser.JobStatus{JobID: id, Status: status, Data: map[string]any{"markdown": "# Ada"}, Error: ""}, nil
}

func hbConfig() config.HyperbrowserConfig {
	return config.HyperbrowserConfig{
		Concurrency:    2,
		EnableScrape:   true,
		EnableExtract:  true,
		EnableCrawl:    true,
		ScrapeTimeout:  time.Second,
		ExtractTimeout: time.Second,
		CrawlTimeout:   time.Second,
	}
}

func TestHyperbrowserScrape_SingleAndBatch(t *testing.T) {
	fb := &fakeBrowser{}
	s := NewHyperbrowserScrape(fb, newGate(2), hbConfig())

	single := model.Params{"hyperbrowser": map[string]any{
		"scrape":          map[string]any{"urls": []any{"https://a.example"}, "formats": []any{"markdown"}},
		"session_options": map[string]any{"useProxy": true},
	}}
	require.True(t, s.CanHandle(single))
	res, err := s.Execute(context.Background(), single)
	require.NoError(t, err)

	assert.Equal(t, SourceHyperbrowserScrape, res.Source)
	assert.Equal(t, "job-1", res.RawData["job_id"])
	assert.Equal(t, hyperbrowser.StatusCompleted, res.RawData["status"])
	assert.Equal(t, []string{"https://a.example"}, res.Meta["urls"])
	assert.Equal(t, "job-1", res.Meta["jobId"])

	batch := model.Params{"hyperbrowser": map[string]any{
		"scrape": map[string]any{"urls": []string{"https://a.example", "https://b.example"}},
	}}
	_, err = s.Execute(context.Background(), batch)
	require.NoError(t, err)

	require.Len(t, fb.kinds, 2)
	assert.Equal(t, hyperbrowser.KindScrape, fb.kinds[0])
	sreq := fb.reqs[0].(hyperbrowser.ScrapeRequest)
	assert.Equal(t, "https://a.example", sreq.URL)
	require.NotNil(t, sreq.ScrapeOptions)
	assert.Equal(t, []string{"markdown"}, sreq.ScrapeOptions.Formats)
	assert.Equal(t, true, sreq.SessionOptions["useProxy"])

	assert.Equal(t, hyperbrowser.KindBatchScrape, fb.kinds[1])
	breq := fb.reqs[1].(hyperbrowser.BatchScrapeRequest)
	assert.Len(t, breq.URLs, 2)
	assert.Nil(t, breq.ScrapeOptions)
}

func TestHyperbrowserExtractAndCrawl(t *testing.T) {
	fb := &fakeBrowser{}
	g := newGate(1)
	ex := NewHyperbrowserExtract(fb, g, hbConfig())
	cr := NewHyperbrowserCrawl(fb, g, hbConfig())

	assert.False(t, ex.CanHandle(model.Params{"hyperbrowser": map[string]any{
		"extract": map[string]any{"urls": []any{"https://a.example"}},
	}}))

	p := model.Params{"hyperbrowser": map[string]any{
		"extract": map[string]any{"urls": []any{"https://a.example"}, "prompt": "find the author", "max_links": float64(4)},
		"crawl":   map[string]any{"url": "https://a.example", "max_pages": 3, "include_patterns": []any{"/blog/*"}},
	}}
	require.True(t, ex.CanHandle(p))
	require.True(t, cr.CanHandle(p))

	_, err := ex.Execute(context.Background(), p)
	require.NoError(t, err)
	res, err := cr.Execute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, SourceHyperbrowserCrawl, res.Source)
	assert.Equal(t, []string{"https://a.example"}, res.Meta["urls"])

	ereq := fb.reqs[0].(hyperbrowser.ExtractRequest)
	assert.Equal(t, "find the author", ereq.Prompt)
	assert.Equal(t, 4, ereq.MaxLinks)

	creq := fb.reqs[1].(hyperbrowser.CrawlRequest)
	assert.Equal(t, 3, creq.MaxPages)
	assert.Equal(t, []string{"/blog/*"}, creq.IncludePatterns)
}

func TestHyperbrowser_FailedJob(t *testing.T) {
	fb := &fakeBrowser{status: hyperbrowser.StatusFailed}
	s := NewHyperbrowserScrape(fb, nil, hbConfig())

	res, err := s.Execute(context.Background(), model.Params{"hyperbrowser": map[string]any{
		"scrape": map[string]any{"urls": []any{"https://a.example"}},
	}})
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Equal(t, []string{"https://a.example"}, res.Meta["urls"])
}

func TestHyperbrowser_DisabledDeclines(t *testing.T) {
	cfg := hbConfig()
	cfg.EnableCrawl = false
	cr := NewHyperbrowserCrawl(&fakeBrowser{}, nil, cfg)
	assert.False(t, cr.CanHandle(model.Params{"hyperbrowser": map[string]any{"crawl": map[string]any{"url": "https://a.example"}}}))
}
