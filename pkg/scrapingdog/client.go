// Package scrapingdog calls the ScrapingDog rendering proxy and its parsed
// X profile endpoint.
package scrapingdog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osint-cli/internal/resilience"
)

const defaultBaseURL = "https://api.scrapingdog.com"

// APIError is returned when ScrapingDog responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scrapingdog: HTTP %d: %s", e.StatusCode, e.Body)
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

// WithRetry overrides the retry policy for transient failures.
func WithRetry(p resilience.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// Client is a ScrapingDog API client.
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
		http:    &http.Client{Timeout: 60 * time.Second},
		retry:   resilience.DefaultPolicy("scrapingdog"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Scrape renders target with JavaScript enabled and returns the page HTML.
// country selects the proxy location and may be empty.
func (c *Client) Scrape(ctx context.Context, target, country string) ([]byte, error) {
	q := url.Values{
		"api_key":   {c.apiKey},
		"url":       {target},
		"render_js": {"true"},
		"retry":     {"2"},
	}
	if country != "" {
		q.Set("country", country)
	}
	body, err := c.get(ctx, "/scrape", q)
	if err != nil {
		return nil, eris.Wrapf(err, "scrapingdog: scrape %s", target)
	}
	return body, nil
}

// XProfile fetches the parsed X profile for a profile URL or handle.
func (c *Client) XProfile(ctx context.Context, profileID string) (map[string]any, error) {
	q := url.Values{
		"api_key":   {c.apiKey},
		"profileId": {profileID},
		"parsed":    {"true"},
	}
	body, err := c.get(ctx, "/x/profile", q)
	if err != nil {
		return nil, eris.Wrapf(err, "scrapingdog: x profile %s", profileID)
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		// Some profiles come back as a one-element list.
		var list []map[string]any
		if lerr := json.Unmarshal(body, &list); lerr != nil || len(list) == 0 {
			return nil, eris.Wrap(err, "scrapingdog: decode x profile")
		}
		out = list[0]
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), http.NoBody)
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
		return data, nil
	})
}
