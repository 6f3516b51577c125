// Package opencage forward-geocodes free-text locations with the OpenCage
// API.
package opencage

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

const defaultBaseURL = "https://api.opencagedata.com/geocode/v1"

// Provider is reported in every Result.
const Provider = "OpenCage"

// ErrNoResults is returned when the query matches nothing.
var ErrNoResults = eris.New("opencage: no results")

// Components is the normalized address breakdown of the top match.
type Components struct {
	CountryCode string `json:"country_code"`
	Country     string `json:"country"`
	State       string `json:"state"`
	City        string `json:"city"`
	County      string `json:"county"`
	Postcode    string `json:"postcode"`
}

// Geometry is a coordinate pair.
type Geometry struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Result is the top geocoding match.
type Result struct {
	Components Components     `json:"components"`
	Geometry   Geometry       `json:"geometry"`
	Formatted  string         `json:"formatted"`
	Confidence int            `json:"confidence"`
	Provider   string         `json:"provider"`
	Raw        map[string]any `json:"raw,omitempty"`
}

// RawData renders r as a generic map suitable for a tool record.
func (r *Result) RawData() map[string]any {
	return map[string]any{
		"components": map[string]any{
			"country_code": r.Components.CountryCode,
			"country":      r.Components.Country,
			"state":        r.Components.State,
			"city":         r.Components.City,
			"county":       r.Components.County,
			"postcode":     r.Components.Postcode,
		},
		"geometry":   map[string]any{"lat": r.Geometry.Lat, "lng": r.Geometry.Lng},
		"formatted":  r.Formatted,
		"confidence": r.Confidence,
		"provider":   r.Provider,
	}
}

type apiResult struct {
	Components map[string]any `json:"components"`
	Geometry   Geometry       `json:"geometry"`
	Formatted  string         `json:"formatted"`
	Confidence int            `json:"confidence"`
}

type apiResponse struct {
	Results []json.RawMessage `json:"results"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("opencage: HTTP %d: %s", e.StatusCode, e.Body)
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

// Client is an OpenCage client.
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
		http:    &http.Client{Timeout: 8 * time.Second},
		retry:   resilience.DefaultPolicy("opencage"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Geocode returns the top match for text. language is optional.
func (c *Client) Geocode(ctx context.Context, text, language string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" || !c.Configured() {
		return nil, eris.New("opencage: missing input or key")
	}
	q := url.Values{"q": {text}, "key": {c.apiKey}, "no_annotations": {"1"}}
	if language != "" {
		q.Set("language", language)
	}
	endpoint := c.baseURL + "/json?" + q.Encode()

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*apiResponse, error) {
		return c.get(ctx, endpoint)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "opencage: geocode %q", text)
	}
	if len(resp.Results) == 0 {
		return nil, ErrNoResults
	}

	var top apiResult
	if err := json.Unmarshal(resp.Results[0], &top); err != nil {
		return nil, eris.Wrap(err, "opencage: decode result")
	}
	var raw map[string]any
	_ = json.Unmarshal(resp.Results[0], &raw)

	comp := func(keys ...string) string {
		for _, k := range keys {
			if s, ok := top.Components[k].(string); ok && s != "" {
				return s
			}
		}
		return ""
	}
	return &Result{
		Components: Components{
			CountryCode: strings.ToUpper(comp("country_code")),
			Country:     comp("country"),
			State:       comp("state", "region"),
			City:        comp("city", "town", "village", "suburb"),
			County:      comp("county"),
			Postcode:    comp("postcode"),
		},
		Geometry:   top.Geometry,
		Formatted:  top.Formatted,
		Confidence: top.Confidence,
		Provider:   Provider,
		Raw:        raw,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*apiResponse, error) {
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
	var out apiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "decode response")
	}
	return &out, nil
}
