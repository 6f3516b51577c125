// Package espy is a client for the ESPY (IRBIS) lookup API. Lookups are
// asynchronous: a start call returns a request id that is then polled until
// the job reaches a terminal status.
package espy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://irbis.espysys.com/api"

// Lookup endpoints.
const (
	EndpointEmail        = "/developer/combined_email"
	EndpointPhone        = "/developer/combined_phone"
	EndpointName         = "/developer/combined_name"
	EndpointDeepweb      = "/developer/deepweb"
	EndpointCourtRecords = "/developer/compliance_screening/court_records"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultPollAttempts = 10
	defaultMinInterval  = time.Second
)

// Sentinel errors.
var (
	ErrNotConfigured = eris.New("espy: api key not configured")
	ErrNoRequestID   = eris.New("espy: start response has no requestId")
	ErrJobFailed     = eris.New("espy: lookup failed")
	ErrPollExhausted = eris.New("espy: polling exhausted")
)

// Input is the subject of a lookup. Court record searches use Keyphrase;
// every other endpoint uses Value.
type Input struct {
	Value     string
	Keyphrase string
	LookupID  int
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("espy: HTTP %d: %s", e.StatusCode, e.Body)
}

// PollObserver receives the terminal outcome of each job.
type PollObserver interface {
	ObservePoll(outcome string)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPollInterval sets the fixed delay between polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithPollAttempts sets the maximum number of polls per job.
func WithPollAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pollAttempts = n
		}
	}
}

// WithMinInterval sets the minimum spacing between job starts. Zero
// disables spacing.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithSleep replaces the delay function used between polls.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithObserver reports poll outcomes to o.
func WithObserver(o PollObserver) Option {
	return func(c *Client) { c.observer = o }
}

// Client talks to the ESPY API.
type Client struct {
	apiKey       string
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
	pollAttempts int
	limiter      *rate.Limiter
	sleep        func(ctx context.Context, d time.Duration) error
	observer     PollObserver
}

// NewClient creates a Client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		http:         &http.Client{Timeout: 30 * time.Second},
		pollInterval: defaultPollInterval,
		pollAttempts: defaultPollAttempts,
		limiter:      rate.NewLimiter(rate.Every(defaultMinInterval), 1),
		sleep:        sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Start submits a lookup and returns its job in the Submitted state. Starts
// are spaced by the minimum interval; polling is not.
func (c *Client) Start(ctx context.Context, endpoint string, in Input) (*Job, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "espy: wait for start slot")
	}

	body := map[string]any{"key": c.apiKey, "lookupId": in.LookupID}
	if in.Keyphrase != "" {
		body["keyphrase"] = in.Keyphrase
	} else {
		body["value"] = in.Value
	}

	var resp map[string]any
	if err := c.post(ctx, endpoint, body, &resp); err != nil {
		return nil, eris.Wrapf(err, "espy: start %s", endpoint)
	}

	id := requestID(resp)
	if id == "" {
		return nil, eris.Wrapf(ErrNoRequestID, "espy: start %s", endpoint)
	}
	return &Job{RequestID: id, State: StateSubmitted, Start: resp}, nil
}

// Poll fetches the current status document of a request once.
func (c *Client) Poll(ctx context.Context, requestID string) (map[string]any, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	path := fmt.Sprintf("/request-monitor/api-usage/%s?key=%s", url.PathEscape(requestID), url.QueryEscape(c.apiKey))
	var resp map[string]any
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, eris.Wrapf(err, "espy: poll %s", requestID)
	}
	return resp, nil
}

// Lookup starts a job and waits for it to finish.
func (c *Client) Lookup(ctx context.Context, endpoint string, in Input) (map[string]any, error) {
	job, err := c.Start(ctx, endpoint, in)
	if err != nil {
		return nil, err
	}
	return c.Wait(ctx, job)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}

func requestID(resp map[string]any) string {
	switch v := resp["requestId"].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
