// Package github fetches public GitHub profile pages and parses the
// identity fields they expose.
package github

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/sells-group/osint-cli/pkg/htmlutil"
)

const (
	defaultBaseURL = "https://github.com"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

var (
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	handlePattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9._%+-])@([A-Za-z0-9_]{1,30})\b`)
)

// Profile is the parsed content of a profile page. Followers and Following
// are nil when the page does not show them.
type Profile struct {
	Username  string
	Name      string
	Bio       string
	Location  string
	Followers *int
	Following *int

	Website       string
	Domain        string
	Company       string
	Email         string
	Twitter       string
	LinkedIn      string
	Organizations []string
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: HTTP %d", e.StatusCode)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides https://github.com.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client fetches profile pages.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchProfile downloads and parses the profile page of username.
func (c *Client) FetchProfile(ctx context.Context, username string) (*Profile, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, eris.New("github: empty username")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(username), http.NoBody)
	if err != nil {
		return nil, eris.Wrap(err, "github: create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "github: fetch %s", username)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "github: read body")
	}

	p, err := Parse(body)
	if err != nil {
		return nil, err
	}
	p.Username = username
	return p, nil
}

// Parse extracts profile fields from a profile page.
func Parse(body []byte) (*Profile, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "github: parse html")
	}

	p := &Profile{}
	p.Name = htmlutil.Text(htmlutil.Find(doc, htmlutil.AttrEquals("itemprop", "name")))
	bio := htmlutil.Find(doc, htmlutil.HasAttr("data-bio-text"))
	p.Bio = htmlutil.Text(bio)
	p.Location = htmlutil.Text(htmlutil.Find(doc, htmlutil.AttrEquals("itemprop", "homeLocation")))
	p.Company = htmlutil.Text(htmlutil.Find(doc, htmlutil.AttrEquals("itemprop", "worksFor")))
	p.Followers = count(doc, "/followers")
	p.Following = count(doc, "/following")

	p.Website = website(doc, bio)
	if p.Website != "" {
		if u, err := url.Parse(p.Website); err == nil {
			p.Domain = strings.TrimPrefix(u.Host, "www.")
		}
	}

	p.Email = htmlutil.Text(htmlutil.Find(doc, htmlutil.AttrEquals("itemprop", "email")))
	if p.Email == "" {
		p.Email = emailPattern.FindString(p.Bio)
	}

	p.Twitter = socialLink(doc, "twitter.com", "x.com")
	if p.Twitter == "" {
		if m := handlePattern.FindStringSubmatch(p.Bio); m != nil {
			p.Twitter = "@" + m[1]
		}
	}
	p.LinkedIn = socialLink(doc, "linkedin.com")

	if orgs := htmlutil.Find(doc, htmlutil.AttrEquals("data-test-selector", "profile-orgs")); orgs != nil {
		for _, a := range htmlutil.FindAll(orgs, htmlutil.Tag("a")) {
			href := htmlutil.Attr(a, "href")
			if !strings.HasPrefix(href, "/") {
				continue
			}
			slug := strings.Trim(href, "/")
			if slug != "" && !contains(p.Organizations, slug) {
				p.Organizations = append(p.Organizations, slug)
			}
		}
	}
	return p, nil
}

func website(doc, bio *html.Node) string {
	if el := htmlutil.Find(doc, htmlutil.AttrEquals("data-test-selector", "profile-website-url")); el != nil {
		if href := strings.TrimSpace(htmlutil.Attr(el, "href")); href != "" {
			return href
		}
	}
	if bio == nil {
		return ""
	}
	for _, a := range htmlutil.FindAll(bio, htmlutil.Tag("a")) {
		href := strings.TrimSpace(htmlutil.Attr(a, "href"))
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			return href
		}
	}
	return ""
}

func socialLink(doc *html.Node, hosts ...string) string {
	for _, a := range htmlutil.FindAll(doc, htmlutil.Tag("a")) {
		href := htmlutil.Attr(a, "href")
		for _, h := range hosts {
			if strings.Contains(href, "://"+h) || strings.Contains(href, "."+h) {
				return strings.TrimSpace(href)
			}
		}
	}
	return ""
}

// count reads the bold number inside the link ending with suffix.
func count(doc *html.Node, suffix string) *int {
	for _, a := range htmlutil.FindAll(doc, htmlutil.Tag("a")) {
		if !strings.HasSuffix(htmlutil.Attr(a, "href"), suffix) {
			continue
		}
		bold := htmlutil.Find(a, htmlutil.HasClass("text-bold"))
		if bold == nil {
			continue
		}
		n, ok := parseCount(htmlutil.Text(bold))
		if ok {
			return &n
		}
	}
	return nil
}

// parseCount handles "1,234" and "1.2k" style counts.
func parseCount(s string) (int, bool) {
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		mult, s = 1_000, strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		mult, s = 1_000_000, strings.TrimSuffix(s, "m")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f * mult), true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
