// Package orchestrator composes the registry, resolution, analysis, and
// language-model collaborators into the shallow and deep search stages.
package orchestrator

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osint-cli/internal/analysis"
	"github.com/sells-group/osint-cli/internal/linkcache"
	"github.com/sells-group/osint-cli/internal/llm"
	"github.com/sells-group/osint-cli/internal/metrics"
	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/internal/region"
	"github.com/sells-group/osint-cli/internal/resolve"
	"github.com/sells-group/osint-cli/internal/store"
	"github.com/sells-group/osint-cli/internal/tool"
	"github.com/sells-group/osint-cli/internal/tools"
	"github.com/sells-group/osint-cli/pkg/opencage"
)

// ErrInsufficientInput is returned when no tool can run for the merged
// input.
var ErrInsufficientInput = eris.New("orchestrator: not enough information to run any searches")

// Geocoder resolves free-text locations. *opencage.Client satisfies it.
type Geocoder interface {
	Configured() bool
	Geocode(ctx context.Context, text, language string) (*opencage.Result, error)
}

// finder pairs a discovery source with the verification input it feeds.
type finder struct {
	platform string
	source   string
	field    string
}

var finders = []finder{
	{platform: "linkedin", source: tools.SourceLinkedInFinder, field: model.FieldLinkedInBestURL},
	{platform: "x", source: tools.SourceXFinder, field: model.FieldXBestURL},
}

// Orchestrator runs search stages. Store, metrics, and geocoder are
// optional.
type Orchestrator struct {
	registry *tool.Registry
	llm      *llm.Service
	resolver *resolve.Resolver
	links    *linkcache.Cache
	store    store.Store
	metrics  *metrics.Metrics
	geocoder Geocoder
	language string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore persists every run and its tool phases.
func WithStore(st store.Store) Option {
	return func(o *Orchestrator) { o.store = st }
}

// WithMetrics records search outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithGeocoder refines the region from the location text.
func WithGeocoder(g Geocoder, language string) Option {
	return func(o *Orchestrator) {
		o.geocoder = g
		o.language = language
	}
}

// WithLinkCache replaces the default link cache.
func WithLinkCache(c *linkcache.Cache) Option {
	return func(o *Orchestrator) { o.links = c }
}

// WithResolver replaces the default candidate resolver.
func WithResolver(r *resolve.Resolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// New creates an Orchestrator.
func New(registry *tool.Registry, svc *llm.Service, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		llm:      svc,
		resolver: resolve.New(region.DefaultCountry),
		links:    linkcache.New(linkcache.DefaultTTL),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Shallow runs discovery for q and folds the evidence into candidates.
func (o *Orchestrator) Shallow(ctx context.Context, q model.SearchQuery) (resp *model.ShallowResponse, err error) {
	defer func() { o.observe(model.StageShallow, err) }()

	params := q.Params()
	if q.FreeTextContext != "" {
		for k, v := range o.llm.Extract(ctx, q.FreeTextContext).Params() {
			params.SetDefault(k, v)
		}
		params.SetDefault(model.FieldSearchHint, o.llm.Hint(ctx, q.FreeTextContext))
	}
	geo := o.applyRegion(ctx, params)

	fp := linkcache.Fingerprint(params)
	log := zap.L().With(zap.String("stage", string(model.StageShallow)), zap.String("fingerprint", fp))

	if len(o.registry.Applicable(params, model.StageShallow)) == 0 {
		log.Info("orchestrator: no applicable tools", zap.Strings("params", params.Keys()))
		return nil, ErrInsufficientInput
	}

	run := o.startRun(ctx, log, model.StageShallow, params)

	results, execs := o.registry.Execute(ctx, params, model.StageShallow)
	if err := ctx.Err(); err != nil {
		o.failRun(ctx, log, run, err)
		return nil, eris.Wrap(err, "orchestrator: shallow search")
	}

	verifyParams := o.discoveryURLs(log, fp, params, results)
	vresults, vexecs := o.verify(ctx, verifyParams)
	results = append(results, vresults...)
	execs = append(execs, vexecs...)

	if geo != nil {
		results = append(results, *geo)
	}

	a := analysis.Analyze(results)
	resp = &model.ShallowResponse{
		Candidates: o.resolver.Resolve(results, params),
		Raw:        results,
		Analysis:   &a,
	}
	log.Info("orchestrator: shallow search complete",
		zap.Int("results", len(results)),
		zap.Int("candidates", len(resp.Candidates)),
		zap.Float64("identity_confidence", a.IdentityConfidence),
	)

	if run != nil {
		resp.RunID = run.ID
		o.finishRun(ctx, log, run.ID, execs, resp)
	}
	return resp, nil
}

// Deep enriches one candidate and synthesizes a judged profile. extra
// fills gaps in the candidate's parameters, e.g. verification URLs or
// Hyperbrowser inputs.
func (o *Orchestrator) Deep(ctx context.Context, c model.Candidate, extra model.Params) (resp *model.DeepResponse, err error) {
	defer func() { o.observe(model.StageDeep, err) }()

	params := c.Params()
	for k, v := range extra {
		params.SetDefault(k, v)
	}
	reg := region.Resolve(params)
	params.SetDefault(model.FieldCountry, reg.Country)
	params.SetDefault(model.FieldMarket, reg.Market)

	log := zap.L().With(zap.String("stage", string(model.StageDeep)), zap.String("fingerprint", linkcache.Fingerprint(params)))

	if len(o.registry.Applicable(params, model.StageDeep)) == 0 {
		log.Info("orchestrator: no applicable tools", zap.Strings("params", params.Keys()))
		return nil, ErrInsufficientInput
	}

	run := o.startRun(ctx, log, model.StageDeep, params)

	results, execs := o.registry.Execute(ctx, params, model.StageDeep)
	if err := ctx.Err(); err != nil {
		o.failRun(ctx, log, run, err)
		return nil, eris.Wrap(err, "orchestrator: deep search")
	}

	profile := o.llm.Synthesize(ctx, results)
	judgement := o.llm.Judge(ctx, profile, results)
	if !judgement.Fallback {
		profile = judgement.JudgedProfile
	}

	resp = &model.DeepResponse{
		Profile:   profile,
		Raw:       results,
		Judgement: &judgement,
	}
	log.Info("orchestrator: deep search complete",
		zap.Int("results", len(results)),
		zap.String("full_name", profile.FullName),
		zap.Bool("judge_fallback", judgement.Fallback),
	)

	if run != nil {
		resp.RunID = run.ID
		o.finishRun(ctx, log, run.ID, execs, resp)
	}
	return resp, nil
}

// applyRegion sets country and mkt on params. A successful geocode wins
// over the heuristic country and is returned as an OpenCage record.
func (o *Orchestrator) applyRegion(ctx context.Context, params model.Params) *model.ToolResult {
	reg := region.Resolve(params)

	var rec *model.ToolResult
	if loc := params.String(model.FieldLocation); loc != "" && o.geocoder != nil && o.geocoder.Configured() {
		geo, err := o.geocoder.Geocode(ctx, loc, o.language)
		if err != nil {
			zap.L().Debug("orchestrator: geocode failed", zap.String("location", loc), zap.Error(err))
		} else {
			r := model.NewResult(analysis.SourceOpenCage, geo.RawData())
			rec = &r
			if cc := strings.ToUpper(geo.Components.CountryCode); cc != "" {
				reg = region.Region{Country: cc, Market: region.Market(cc)}
			}
		}
	}

	params.SetDefault(model.FieldCountry, reg.Country)
	params.SetDefault(model.FieldMarket, reg.Market)
	return rec
}

// discoveryURLs records each finder's best URL in the link cache, or
// reuses a cached one when the finder produced none, and returns params
// extended with the verification inputs.
func (o *Orchestrator) discoveryURLs(log *zap.Logger, fp string, params model.Params, results []model.ToolResult) model.Params {
	out := params.Clone()
	for _, f := range finders {
		url := bestURL(results, f.source)
		if url != "" {
			o.links.SetBest(f.platform, fp, url)
		} else if cached, ok := o.links.GetBest(f.platform, fp); ok {
			log.Debug("orchestrator: using cached discovery url", zap.String("platform", f.platform), zap.String("url", cached))
			url = cached
		}
		if url != "" {
			out[f.field] = url
		}
	}
	return out
}

func bestURL(results []model.ToolResult, source string) string {
	for _, r := range results {
		if r.Source == source && !r.Failed() {
			if u := r.Str("best_url"); u != "" {
				return u
			}
		}
	}
	return ""
}

// verify runs the verification tools that can handle params.
func (o *Orchestrator) verify(ctx context.Context, params model.Params) ([]model.ToolResult, []model.Execution) {
	var vt []tool.Tool
	for _, name := range tools.Verification {
		if t := o.registry.Get(name); t != nil && t.CanHandle(params) {
			vt = append(vt, t)
		}
	}
	if len(vt) == 0 {
		return nil, nil
	}
	results, execs := o.registry.Run(ctx, params, vt, model.StageShallow)

	// The discovery fan-out already emitted the user_input record.
	out := results[:0]
	for _, r := range results {
		if r.Source != model.SourceUserInput {
			out = append(out, r)
		}
	}
	return out, execs
}

func (o *Orchestrator) startRun(ctx context.Context, log *zap.Logger, stage model.Stage, params model.Params) *model.Run {
	if o.store == nil {
		return nil
	}
	run, err := o.store.CreateRun(ctx, stage, params)
	if err != nil {
		log.Warn("orchestrator: failed to create run", zap.Error(err))
		return nil
	}
	return run
}

func (o *Orchestrator) finishRun(ctx context.Context, log *zap.Logger, runID string, execs []model.Execution, result any) {
	phases := make([]model.Phase, 0, len(execs))
	for _, e := range execs {
		phases = append(phases, e.Phase(runID))
	}
	if err := o.store.RecordPhases(ctx, runID, phases); err != nil {
		log.Warn("orchestrator: failed to record phases", zap.String("run_id", runID), zap.Error(err))
	}
	if err := o.store.CompleteRun(ctx, runID, result); err != nil {
		log.Warn("orchestrator: failed to complete run", zap.String("run_id", runID), zap.Error(err))
	}
}

// failRun marks run failed. ctx may already be done, so the write uses a
// detached context.
func (o *Orchestrator) failRun(ctx context.Context, log *zap.Logger, run *model.Run, cause error) {
	if run == nil {
		return
	}
	if err := o.store.FailRun(context.WithoutCancel(ctx), run.ID, cause.Error()); err != nil {
		log.Warn("orchestrator: failed to mark run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (o *Orchestrator) observe(stage model.Stage, err error) {
	if o.metrics != nil {
		o.metrics.ObserveSearch(stage, err)
	}
}
