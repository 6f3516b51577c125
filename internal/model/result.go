package model

import "strings"

// Well-known synthetic sources.
const (
	SourceError     = "error"
	SourceUserInput = "user_input"
)

// Stage partitions cheap discovery tools from expensive enrichment tools.
type Stage string

const (
	StageShallow Stage = "shallow"
	StageDeep    Stage = "deep"
)

// ToolResult is the normalized record produced by exactly one tool
// invocation.
type ToolResult struct {
	Source  string         `json:"source"`
	RawData map[string]any `json:"raw_data"`
	Error   string         `json:"error,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// NewResult builds a ToolResult with a non-nil raw map.
func NewResult(source string, raw map[string]any) ToolResult {
	if raw == nil {
		raw = map[string]any{}
	}
	return ToolResult{Source: source, RawData: raw}
}

// ErrorResult builds a result carrying a tool-level failure in raw_data.error.
func ErrorResult(source, msg string, extra map[string]any) ToolResult {
	raw := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		raw[k] = v
	}
	raw["error"] = msg
	return ToolResult{Source: source, RawData: raw}
}

// Failed reports whether the result carries an error at either the record
// or the raw_data level.
func (r ToolResult) Failed() bool {
	if r.Error != "" {
		return true
	}
	return r.RawError() != ""
}

// RawError returns raw_data.error as a string.
func (r ToolResult) RawError() string {
	if s, ok := r.RawData["error"].(string); ok {
		return s
	}
	return ""
}

// Str returns the trimmed string stored at raw_data[key].
func (r ToolResult) Str(key string) string {
	s, _ := r.RawData[key].(string)
	return strings.TrimSpace(s)
}

// Strs returns raw_data[key] as a string list.
func (r ToolResult) Strs(key string) []string {
	return toStrings(r.RawData[key])
}

// WithMeta returns a copy of r with key set in Meta.
func (r ToolResult) WithMeta(key string, v any) ToolResult {
	meta := make(map[string]any, len(r.Meta)+1)
	for k, mv := range r.Meta {
		meta[k] = mv
	}
	meta[key] = v
	r.Meta = meta
	return r
}
