package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osint-cli/internal/config"
	"github.com/sells-group/osint-cli/internal/model"
)

func testEnv(t *testing.T, persist bool) *appEnv {
	t.Helper()
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "serve.db")},
	}
	env, err := initEnv(context.Background(), persist)
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}

func serveRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestInitEnv_RegistersTools(t *testing.T) {
	env := testEnv(t, false)

	assert.Nil(t, env.Store)
	assert.Contains(t, env.Registry.Names(), "github")
	assert.Contains(t, env.Registry.Names(), "hyperbrowser_scrape")
	assert.False(t, env.ESPY.Configured())
}

func TestInitEnv_BadServicesPath(t *testing.T) {
	cfg = &config.Config{Services: config.ServicesConfig{Path: filepath.Join(t.TempDir(), "missing.yaml")}}
	_, err := initEnv(context.Background(), false)
	assert.Error(t, err)
}

func TestServe_Health(t *testing.T) {
	h := newAPI(testEnv(t, true)).Router()

	w := serveRequest(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServe_SearchWithoutApplicableTools(t *testing.T) {
	h := newAPI(testEnv(t, true)).Router()

	w := serveRequest(t, h, http.MethodPost, "/search", model.SearchQuery{Location: "London"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServe_RunsAndMetrics(t *testing.T) {
	env := testEnv(t, true)
	h := newAPI(env).Router()

	w := serveRequest(t, h, http.MethodGet, "/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	env.Metrics.ObserveSearch(model.StageDeep, nil)
	w = serveRequest(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "osint_searches_total")
}

func TestServe_NoStoreNoESPY(t *testing.T) {
	h := newAPI(testEnv(t, false)).Router()

	assert.Equal(t, http.StatusServiceUnavailable, serveRequest(t, h, http.MethodGet, "/runs", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serveRequest(t, h, http.MethodGet, "/espy/poll/1", nil).Code)
}

func TestServe_PlanWithoutModel(t *testing.T) {
	h := newAPI(testEnv(t, false)).Router()

	w := serveRequest(t, h, http.MethodPost, "/plan/search", model.SearchQuery{Username: "ada"})
	require.Equal(t, http.StatusOK, w.Code)

	var p model.Plan
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, "Model unavailable", p.FinishIf)
	assert.Empty(t, p.Steps)
}

func TestServe_ExecutePlanScrapeDisabled(t *testing.T) {
	h := newAPI(testEnv(t, false)).Router()

	plan := model.Plan{Steps: []model.PlanStep{{Tool: "hyperbrowser_scrape", Inputs: map[string]any{"urls": []string{"https://github.com/ada"}}}}}
	w := serveRequest(t, h, http.MethodPost, "/execute/plan", plan)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Results []model.ToolResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "scrape_disabled", body.Results[0].RawError())
}
