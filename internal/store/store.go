// Package store persists search runs and their per-tool phases.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osint-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Stage  model.Stage     `json:"stage,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// defaultLimit bounds ListRuns when no limit is given.
const defaultLimit = 100

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return defaultLimit
	}
	return f.Limit
}

// Store is the run log. Candidate identities are never persisted across
// requests; only the runs that produced them.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, stage model.Stage, input model.Params) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, result any) error
	FailRun(ctx context.Context, runID string, msg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	RecordPhases(ctx context.Context, runID string, phases []model.Phase) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
