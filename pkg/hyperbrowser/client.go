package hyperbrowser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Default base URL for the Hyperbrowser API.
const defaultBaseURL = "https://app.hyperbrowser.ai/api"

// Kind selects a job family; it is also the URL path segment.
type Kind string

const (
	KindScrape      Kind = "scrape"
	KindBatchScrape Kind = "scrape/batch"
	KindCrawl       Kind = "crawl"
	KindExtract     Kind = "extract"
)

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Client defines the Hyperbrowser job operations.
type Client interface {
	StartJob(ctx context.Context, kind Kind, req any) (string, error)
	GetJob(ctx context.Context, kind Kind, id string) (*JobStatus, error)
}

// ScrapeOptions control page rendering for scrape-style jobs.
type ScrapeOptions struct {
	Formats         []string `json:"formats,omitempty"`
	OnlyMainContent *bool    `json:"onlyMainContent,omitempty"`
	Timeout         int      `json:"timeout,omitempty"`
}

// SessionOptions are passed through to the browser session unchanged.
type SessionOptions map[string]any

// ScrapeRequest is the body for POST /scrape.
type ScrapeRequest struct {
	URL            string         `json:"url"`
	ScrapeOptions  *ScrapeOptions `json:"scrapeOptions,omitempty"`
	SessionOptions SessionOptions `json:"sessionOptions,omitempty"`
}

// BatchScrapeRequest is the body for POST /scrape/batch.
type BatchScrapeRequest struct {
	URLs           []string       `json:"urls"`
	ScrapeOptions  *ScrapeOptions `json:"scrapeOptions,omitempty"`
	SessionOptions SessionOptions `json:"sessionOptions,omitempty"`
}

// CrawlRequest is the body for POST /crawl.
type CrawlRequest struct {
	URL             string         `json:"url"`
	MaxPages        int            `json:"maxPages,omitempty"`
	FollowLinks     *bool          `json:"followLinks,omitempty"`
	IncludePatterns []string       `json:"includePatterns,omitempty"`
	ExcludePatterns []string       `json:"excludePatterns,omitempty"`
	ScrapeOptions   *ScrapeOptions `json:"scrapeOptions,omitempty"`
	SessionOptions  SessionOptions `json:"sessionOptions,omitempty"`
}

// ExtractRequest is the body for POST /extract.
type ExtractRequest struct {
	URLs           []string       `json:"urls"`
	Prompt         string         `json:"prompt,omitempty"`
	Schema         map[string]any `json:"schema,omitempty"`
	MaxLinks       int            `json:"maxLinks,omitempty"`
	SessionOptions SessionOptions `json:"sessionOptions,omitempty"`
}

// JobStatus is the response from GET /{kind}/{id}.
type JobStatus struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

type startResponse struct {
	JobID string `json:"jobId"`
}

// APIError is returned when Hyperbrowser responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hyperbrowser: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Hyperbrowser client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) StartJob(ctx context.Context, kind Kind, req any) (string, error) {
	var resp startResponse
	if err := c.post(ctx, "/"+string(kind), req, &resp); err != nil {
		return "", eris.Wrapf(err, "hyperbrowser: start %s", kind)
	}
	if resp.JobID == "" {
		return "", eris.Errorf("hyperbrowser: start %s: empty job id", kind)
	}
	return resp.JobID, nil
}

func (c *httpClient) GetJob(ctx context.Context, kind Kind, id string) (*JobStatus, error) {
	var resp JobStatus
	if err := c.get(ctx, fmt.Sprintf("/%s/%s", kind, id), &resp); err != nil {
		return nil, eris.Wrapf(err, "hyperbrowser: get %s %s", kind, id)
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("x-api-key", c.apiKey)

	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
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
