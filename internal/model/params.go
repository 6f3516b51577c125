package model

import (
	"fmt"
	"sort"
	"strings"
)

// Identity field names shared by tools, resolution, and analysis.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldUsername        = "username"
	FieldLocation        = "location"
	FieldFreeTextContext = "free_text_context"
	FieldCountry         = "country"
	FieldMarket          = "mkt"
	FieldSearchHint      = "search_hint"
	FieldCompany         = "company"
	FieldUsedServices    = "used_services"
	FieldUsedServiceIDs  = "used_service_ids"

	// Discovery URLs handed to verification tools.
	FieldLinkedInBestURL = "linkedin_finder_best_url"
	FieldXBestURL        = "x_finder_best_url"

	// FieldHyperbrowser holds nested scrape/extract/crawl inputs.
	FieldHyperbrowser = "hyperbrowser"
)

// Params is the parameter bag handed to every tool. Values are scalars,
// string lists, or nested maps (hyperbrowser inputs). Tools must treat it
// as read-only.
type Params map[string]any

// String returns the trimmed string value for key, or "" when absent or
// not a scalar.
func (p Params) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	case int, int32, int64, float64, bool:
		return fmt.Sprint(t)
	default:
		return ""
	}
}

// Has reports whether key carries a non-empty value.
func (p Params) Has(key string) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case []string:
		return len(t) > 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// Strings returns a string list for key. A scalar string yields a one
// element list.
func (p Params) Strings(key string) []string {
	return toStrings(p[key])
}

// Map returns the nested map stored under key, or nil.
func (p Params) Map(key string) map[string]any {
	m, _ := p[key].(map[string]any)
	return m
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// SetDefault stores v under key only when key has no value yet.
func (p Params) SetDefault(key string, v any) {
	if p.Has(key) {
		return
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return
	}
	p[key] = v
}

// Keys returns the populated keys in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		if p.Has(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
		return nil
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
