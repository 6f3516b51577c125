package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osint-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.StageShallow, model.Params{"email": "ada@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	resp := &model.ShallowResponse{
		RunID:      run.ID,
		Candidates: []model.Candidate{{Email: "ada@example.com", Name: "Ada"}},
		Raw:        []model.ToolResult{model.NewResult("Holehe", map[string]any{"email": "ada@example.com"})},
	}
	require.NoError(t, st.RecordPhases(ctx, run.ID, []model.Phase{
		{Tool: "holehe_cli", Source: "Holehe", Status: model.PhaseStatusComplete, DurationMs: 1200},
		{Tool: "github", Source: "error", Status: model.PhaseStatusFailed, DurationMs: 30, Error: "timeout"},
	}))
	require.NoError(t, st.CompleteRun(ctx, run.ID, resp))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StageShallow, got.Stage)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, "ada@example.com", got.Input.String("email"))

	var decoded model.ShallowResponse
	require.NoError(t, json.Unmarshal(got.Result, &decoded))
	require.Len(t, decoded.Candidates, 1)
	assert.Equal(t, "Ada", decoded.Candidates[0].Name)

	require.Len(t, got.Phases, 2)
	assert.Equal(t, "holehe_cli", got.Phases[0].Tool)
	assert.Equal(t, int64(1200), got.Phases[0].DurationMs)
	assert.Equal(t, model.PhaseStatusFailed, got.Phases[1].Status)
	assert.Equal(t, "timeout", got.Phases[1].Error)
	assert.NotEmpty(t, got.Phases[1].ID)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.StageDeep, model.Params{"name": "Ada"})
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, "context canceled"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "context canceled", got.Error)
	assert.Nil(t, got.Result)
	assert.Empty(t, got.Phases)
}

func TestSQLite_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	assert.True(t, eris.Is(err, ErrNotFound))

	assert.True(t, eris.Is(st.CompleteRun(ctx, "missing", map[string]any{}), ErrNotFound))
	assert.True(t, eris.Is(st.FailRun(ctx, "missing", "x"), ErrNotFound))
}

func TestSQLite_RecordPhasesEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.RecordPhases(context.Background(), "any", nil))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var ids []string
	for _, stage := range []model.Stage{model.StageShallow, model.StageDeep, model.StageShallow} {
		run, err := st.CreateRun(ctx, stage, model.Params{"username": "ada"})
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}
	require.NoError(t, st.CompleteRun(ctx, ids[0], map[string]any{"ok": true}))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	shallow, err := st.ListRuns(ctx, RunFilter{Stage: model.StageShallow})
	require.NoError(t, err)
	assert.Len(t, shallow, 2)

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, ids[0], complete[0].ID)
	assert.JSONEq(t, `{"ok":true}`, string(complete[0].Result))

	page, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := st.ListRuns(ctx, RunFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
