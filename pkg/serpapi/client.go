// Package serpapi queries Bing through SerpAPI.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osint-cli/internal/resilience"
)

const defaultBaseURL = "https://serpapi.com"

// Engine is the search engine used by all queries.
const Engine = "bing"

// OrganicResult is one organic search hit.
type OrganicResult struct {
	Link    string
	Title   string
	Snippet string
}

type organicJSON struct {
	Link                    string          `json:"link"`
	LinkURL                 string          `json:"link_url"`
	Title                   string          `json:"title"`
	Snippet                 json.RawMessage `json:"snippet"`
	SnippetHighlightedWords []string        `json:"snippet_highlighted_words"`
}

type searchResponse struct {
	OrganicResults []organicJSON `json:"organic_results"`
	Error          string        `json:"error"`
}

// APIError is returned when SerpAPI responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("serpapi: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client is a SerpAPI client.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   resilience.Policy
}

// NewClient creates a Client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		retry:   resilience.DefaultPolicy("serpapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Search runs q on Bing for market mkt (e.g. "en-GB").
func (c *Client) Search(ctx context.Context, q, mkt string) ([]OrganicResult, error) {
	params := url.Values{
		"engine":  {Engine},
		"q":       {q},
		"api_key": {c.apiKey},
	}
	if mkt != "" {
		params.Set("mkt", mkt)
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*searchResponse, error) {
		return c.get(ctx, "/search?"+params.Encode())
	})
	if err != nil {
		return nil, eris.Wrapf(err, "serpapi: search %q", q)
	}
	if resp.Error != "" && len(resp.OrganicResults) == 0 {
		return nil, eris.Errorf("serpapi: search %q: %s", q, resp.Error)
	}

	out := make([]OrganicResult, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		link := r.Link
		if link == "" {
			link = r.LinkURL
		}
		out = append(out, OrganicResult{
			Link:    strings.TrimSpace(link),
			Title:   strings.TrimSpace(r.Title),
			Snippet: snippet(r),
		})
	}
	return out, nil
}

// snippet accepts both string and list-of-strings snippets.
func snippet(r organicJSON) string {
	var s string
	if err := json.Unmarshal(r.Snippet, &s); err == nil && s != "" {
		return s
	}
	var parts []string
	if err := json.Unmarshal(r.Snippet, &parts); err == nil && len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return strings.Join(r.SnippetHighlightedWords, " ")
}

func (c *Client) get(ctx context.Context, path string) (*searchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		if resilience.RetryableStatus(resp.StatusCode) {
			return nil, resilience.Transient(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}

	var out searchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "decode response")
	}
	return &out, nil
}
