// Package numverify validates phone numbers with the apilayer Numverify API.
package numverify

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

const defaultBaseURL = "http://apilayer.net/api"

// APIError is returned for non-2xx responses and for error documents
// returned with a 200 status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("numverify: HTTP %d: %s", e.StatusCode, e.Body)
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

// Client is a Numverify client.
type Client struct {
	accessKey string
	baseURL   string
	http      *http.Client
	retry     resilience.Policy
}

// NewClient creates a Client.
func NewClient(accessKey string, opts ...Option) *Client {
	c := &Client{
		accessKey: accessKey,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 10 * time.Second},
		retry:     resilience.DefaultPolicy("numverify"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an access key is set.
func (c *Client) Configured() bool { return c.accessKey != "" }

// Validate returns the raw validation document for number (valid,
// international_format, country_code, carrier, line_type, ...).
func (c *Client) Validate(ctx context.Context, number string) (map[string]any, error) {
	q := url.Values{"access_key": {c.accessKey}, "number": {number}}
	endpoint := c.baseURL + "/validate?" + q.Encode()

	out, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (map[string]any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
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

		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, eris.Wrap(err, "decode response")
		}
		if success, ok := doc["success"].(bool); ok && !success {
			return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		}
		return doc, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "numverify: validate")
	}
	return out, nil
}
