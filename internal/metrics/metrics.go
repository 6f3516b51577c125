// Package metrics exposes Prometheus instruments for tool dispatch,
// ESPY polling, and search runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sells-group/osint-cli/internal/model"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the registered collectors.
type Metrics struct {
	ToolExecutions *prometheus.CounterVec
	ToolDuration   *prometheus.HistogramVec
	ESPYPolls      *prometheus.CounterVec
	Searches       *prometheus.CounterVec
}

// New registers all collectors with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ToolExecutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "osint_tool_executions_total",
			Help: "Tool executions by tool, stage, and outcome",
		}, []string{"tool", "stage", "outcome"}),
		ToolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "osint_tool_duration_seconds",
			Help:    "Wall time of a single tool execution",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"tool"}),
		ESPYPolls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "osint_espy_polls_total",
			Help: "ESPY job polls by terminal outcome",
		}, []string{"outcome"}),
		Searches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "osint_searches_total",
			Help: "Search runs by stage and outcome",
		}, []string{"stage", "outcome"}),
	}
}

// ObserveTool records one tool execution.
func (m *Metrics) ObserveTool(exec model.Execution, stage model.Stage) {
	outcome := OutcomeSuccess
	if exec.Error != "" {
		outcome = OutcomeError
	}
	m.ToolExecutions.WithLabelValues(exec.Tool, string(stage), outcome).Inc()
	m.ToolDuration.WithLabelValues(exec.Tool).Observe(exec.Duration.Seconds())
}

// ObservePoll records the terminal outcome of an ESPY poll loop.
func (m *Metrics) ObservePoll(outcome string) {
	m.ESPYPolls.WithLabelValues(outcome).Inc()
}

// ObserveSearch records a finished search run.
func (m *Metrics) ObserveSearch(stage model.Stage, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.Searches.WithLabelValues(string(stage), outcome).Inc()
}
