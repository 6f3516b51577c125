// Package api serves the search, enrichment, planning, and run-log
// endpoints over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Searcher runs the shallow and deep stages. *orchestrator.Orchestrator
// satisfies it.
type Searcher interface {
	Shallow(ctx context.Context, q model.SearchQuery) (*model.ShallowResponse, error)
	Deep(ctx context.Context, c model.Candidate, extra model.Params) (*model.DeepResponse, error)
}

// Planner proposes advisory plans.
type Planner interface {
	Generate(ctx context.Context, stage model.Stage, in model.Params) model.Plan
}

// PlanExecutor runs the scrape steps of a plan.
type PlanExecutor interface {
	Execute(ctx context.Context, p model.Plan) []model.ToolResult
}

// Poller fetches the status document of an ESPY request.
type Poller interface {
	Poll(ctx context.Context, requestID string) (map[string]any, error)
}

// Deps are the collaborators behind the handlers. Store, Poller, and
// Metrics are optional; their routes answer 503 when absent.
type Deps struct {
	Searcher       Searcher
	Planner        Planner
	Executor       PlanExecutor
	Poller         Poller
	Store          store.Store
	Metrics        http.Handler
	AllowedOrigins []string
	Timeout        time.Duration
}

// Server holds the handler dependencies.
type Server struct {
	deps     Deps
	validate *validator.Validate
}

// New creates a Server.
func New(deps Deps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}
	return &Server{deps: deps, validate: validator.New()}
}

// Router returns the mounted routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics)

	r.Group(func(r chi.Router) {
		if s.deps.Timeout > 0 {
			r.Use(middleware.Timeout(s.deps.Timeout))
		}
		r.Post("/search", s.handleSearch)
		r.Post("/profile/enrich", s.handleEnrich)
		r.Post("/plan/search", s.handlePlanSearch)
		r.Post("/plan/enrich", s.handlePlanEnrich)
		r.Post("/execute/plan", s.handleExecutePlan)
		r.Get("/espy/poll/{requestID}", s.handleESPYPoll)
	})

	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}", s.handleGetRun)
	return r
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decode reads a JSON body into dst and validates it. It writes the 400
// response itself and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage names the first failing field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid " + fe.Field() + ": failed " + fe.Tag()
	}
	return "invalid request"
}
