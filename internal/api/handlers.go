package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/internal/orchestrator"
	"github.com/sells-group/osint-cli/internal/store"
)

// EnrichRequest is a candidate plus optional verification and browser
// inputs for the deep stage.
type EnrichRequest struct {
	model.Candidate
	LinkedInURL  string         `json:"linkedin_url,omitempty" validate:"omitempty,url"`
	XURL         string         `json:"x_url,omitempty" validate:"omitempty,url"`
	Hyperbrowser map[string]any `json:"hyperbrowser,omitempty"`
}

func (req EnrichRequest) extra() model.Params {
	p := model.Params{}
	p.SetDefault(model.FieldLinkedInBestURL, req.LinkedInURL)
	p.SetDefault(model.FieldXBestURL, req.XURL)
	if len(req.Hyperbrowser) > 0 {
		p[model.FieldHyperbrowser] = req.Hyperbrowser
	}
	return p
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var q model.SearchQuery
	if !s.decode(w, r, &q) {
		return
	}
	if q.Empty() {
		writeError(w, http.StatusBadRequest, "at least one search field is required")
		return
	}

	resp, err := s.deps.Searcher.Shallow(r.Context(), q)
	if err != nil {
		s.searchError(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp, err := s.deps.Searcher.Deep(r.Context(), req.Candidate, req.extra())
	if err != nil {
		s.searchError(w, r, "enrich", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) searchError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if eris.Is(err, orchestrator.ErrInsufficientInput) {
		writeError(w, http.StatusBadRequest, "not enough information to run any searches")
		return
	}
	if r.Context().Err() != nil {
		writeError(w, http.StatusGatewayTimeout, "request canceled")
		return
	}
	zap.L().Error("api: "+op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, op+" failed")
}

func (s *Server) handlePlanSearch(w http.ResponseWriter, r *http.Request) {
	var q model.SearchQuery
	if !s.decode(w, r, &q) {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Planner.Generate(r.Context(), model.StageShallow, q.Params()))
}

func (s *Server) handlePlanEnrich(w http.ResponseWriter, r *http.Request) {
	var c model.Candidate
	if !s.decode(w, r, &c) {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Planner.Generate(r.Context(), model.StageDeep, c.Params()))
}

func (s *Server) handleExecutePlan(w http.ResponseWriter, r *http.Request) {
	var p model.Plan
	if !s.decode(w, r, &p) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": s.deps.Executor.Execute(r.Context(), p)})
}

func (s *Server) handleESPYPoll(w http.ResponseWriter, r *http.Request) {
	if s.deps.Poller == nil {
		writeError(w, http.StatusServiceUnavailable, "espy is not configured")
		return
	}
	id := chi.URLParam(r, "requestID")
	if err := s.validate.Var(id, "required,numeric"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid requestID")
		return
	}

	resp, err := s.deps.Poller.Poll(r.Context(), id)
	if err != nil {
		zap.L().Warn("api: espy poll failed", zap.String("request_id", id), zap.Error(err))
		writeError(w, http.StatusBadGateway, "espy poll failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "run store is not configured")
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{
		Stage:  model.Stage(q.Get("stage")),
		Status: model.RunStatus(q.Get("status")),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	runs, err := s.deps.Store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "run store is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.deps.Store.GetRun(r.Context(), id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		zap.L().Error("api: get run failed", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// intParam parses a non-negative integer query value; empty is zero.
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, eris.Errorf("api: invalid integer %q", v)
	}
	return n, nil
}
