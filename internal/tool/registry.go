package tool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/osint-cli/internal/model"
)

var tracer = otel.Tracer("osint-cli/tool")

// Registry holds tools in insertion order and runs the applicable subset
// concurrently.
type Registry struct {
	tools    []Tool
	byName   map[string]Tool
	observer Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver attaches an execution observer (metrics).
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// NewRegistry creates a registry from an explicit tool list. Later tools
// with a duplicate name are ignored.
func NewRegistry(tools []Tool, opts ...Option) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t == nil {
			continue
		}
		if _, dup := r.byName[t.Name()]; dup {
			zap.L().Warn("tool: duplicate registration ignored", zap.String("tool", t.Name()))
			continue
		}
		r.byName[t.Name()] = t
		r.tools = append(r.tools, t)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) Tool {
	return r.byName[name]
}

// Names returns all registered tool names in insertion order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name()
	}
	return names
}

// Applicable filters tools by stage (empty matches every stage) and then
// by CanHandle, preserving insertion order.
func (r *Registry) Applicable(params model.Params, stage model.Stage) []Tool {
	var out []Tool
	for _, t := range r.tools {
		if stage != "" && t.Stage() != stage {
			continue
		}
		if t.CanHandle(params) {
			out = append(out, t)
		}
	}
	return out
}

// Execute runs every applicable tool concurrently. Results are returned in
// tool insertion order regardless of completion order. A tool that returns
// an error or panics yields a {source: "error"} record; the batch itself
// never fails. When params carry a location, a user_input record is
// appended.
func (r *Registry) Execute(ctx context.Context, params model.Params, stage model.Stage) ([]model.ToolResult, []model.Execution) {
	return r.Run(ctx, params, r.Applicable(params, stage), stage)
}

// Run executes the given tools with the same isolation and ordering rules
// as Execute.
func (r *Registry) Run(ctx context.Context, params model.Params, tools []Tool, stage model.Stage) ([]model.ToolResult, []model.Execution) {
	ctx, span := tracer.Start(ctx, "Registry.Execute",
		trace.WithAttributes(
			attribute.String("tool.stage", string(stage)),
			attribute.Int("tool.count", len(tools)),
		),
	)
	defer span.End()

	results := make([]model.ToolResult, len(tools))
	execs := make([]model.Execution, len(tools))

	var g errgroup.Group
	for i, t := range tools {
		g.Go(func() error {
			results[i], execs[i] = r.runOne(ctx, t, params.Clone())
			return nil
		})
	}
	_ = g.Wait()

	if loc := params.String(model.FieldLocation); loc != "" {
		results = append(results, model.NewResult(model.SourceUserInput, map[string]any{
			model.FieldLocation: loc,
		}))
	}

	for _, e := range execs {
		if r.observer != nil {
			r.observer.ObserveTool(e, stage)
		}
	}
	return results, execs
}

func (r *Registry) runOne(ctx context.Context, t Tool, params model.Params) (res model.ToolResult, exec model.Execution) {
	ctx, span := tracer.Start(ctx, "Tool.Execute", trace.WithAttributes(attribute.String("tool.name", t.Name())))
	defer span.End()

	start := time.Now()
	exec.Tool = t.Name()

	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("tool: panic recovered",
				zap.String("tool", t.Name()),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			res = errorRecord(fmt.Sprintf("%s: panic: %v", t.Name(), rec))
		}
		exec.Source = res.Source
		exec.Duration = time.Since(start)
		if res.Failed() {
			exec.Error = res.Error
			if exec.Error == "" {
				exec.Error = res.RawError()
			}
			span.SetStatus(codes.Error, exec.Error)
		}
		span.SetAttributes(attribute.String("tool.source", res.Source))
	}()

	out, err := t.Execute(ctx, params)
	if err != nil {
		zap.L().Warn("tool: execute failed", zap.String("tool", t.Name()), zap.Error(err))
		return errorRecord(err.Error()), exec
	}
	if out.RawData == nil {
		out.RawData = map[string]any{}
	}
	zap.L().Debug("tool: execute complete",
		zap.String("tool", t.Name()),
		zap.String("source", out.Source),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, exec
}

func errorRecord(msg string) model.ToolResult {
	return model.ToolResult{
		Source:  model.SourceError,
		RawData: map[string]any{},
		Error:   msg,
	}
}
