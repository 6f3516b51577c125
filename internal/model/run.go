package model

import (
	"encoding/json"
	"time"
)

// RunStatus represents the current state of a search run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// PhaseStatus represents the outcome of a single tool execution within a run.
type PhaseStatus string

const (
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// Run is a persisted record of one shallow or deep search.
type Run struct {
	ID        string          `json:"id"`
	Stage     Stage           `json:"stage"`
	Input     Params          `json:"input"`
	Status    RunStatus       `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Phases    []Phase         `json:"phases,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Phase records one tool execution inside a run.
type Phase struct {
	ID         string      `json:"id"`
	RunID      string      `json:"run_id"`
	Tool       string      `json:"tool"`
	Source     string      `json:"source"`
	Status     PhaseStatus `json:"status"`
	DurationMs int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
}

// Execution is the per-tool trace returned by the registry alongside results.
type Execution struct {
	Tool     string
	Source   string
	Duration time.Duration
	Error    string
}

// Phase converts the execution into a phase row for runID.
func (e Execution) Phase(runID string) Phase {
	status := PhaseStatusComplete
	if e.Error != "" {
		status = PhaseStatusFailed
	}
	return Phase{
		RunID:      runID,
		Tool:       e.Tool,
		Source:     e.Source,
		Status:     status,
		DurationMs: e.Duration.Milliseconds(),
		Error:      e.Error,
	}
}
