package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osint-cli/internal/linkcache"
	"github.com/sells-group/osint-cli/internal/llm"
	"github.com/sells-group/osint-cli/internal/metrics"
	"github.com/sells-group/osint-cli/internal/orchestrator"
	"github.com/sells-group/osint-cli/internal/plan"
	"github.com/sells-group/osint-cli/internal/resolve"
	"github.com/sells-group/osint-cli/internal/services"
	"github.com/sells-group/osint-cli/internal/store"
	"github.com/sells-group/osint-cli/internal/tool"
	"github.com/sells-group/osint-cli/internal/tools"
	anthropicpkg "github.com/sells-group/osint-cli/pkg/anthropic"
	"github.com/sells-group/osint-cli/pkg/espy"
	"github.com/sells-group/osint-cli/pkg/opencage"
)

// appEnv holds the initialized clients and components needed by the
// search/enrich/plan/serve commands.
type appEnv struct {
	Store        store.Store // may be nil
	Registry     *tool.Registry
	Orchestrator *orchestrator.Orchestrator
	Planner      *plan.Planner
	Executor     *plan.Executor
	ESPY         *espy.Client
	Metrics      *metrics.Metrics
	MetricsHTTP  http.Handler
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv builds every client and the orchestrator. With persist set and a
// store driver other than "none" the run store is opened and migrated.
// Callers should defer env.Close().
func initEnv(ctx context.Context, persist bool) (*appEnv, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	table, err := services.Load(cfg.Services.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load service aliases")
	}
	zap.L().Debug("service aliases loaded", zap.Int("services", table.Len()))

	espyOpts := []espy.Option{
		espy.WithPollInterval(cfg.ESPY.PollInterval),
		espy.WithPollAttempts(cfg.ESPY.PollAttempts),
		espy.WithMinInterval(cfg.ESPY.MinInterval),
		espy.WithObserver(m),
	}
	if cfg.ESPY.BaseURL != "" {
		espyOpts = append(espyOpts, espy.WithBaseURL(cfg.ESPY.BaseURL))
	}
	espyClient := espy.NewClient(cfg.ESPY.Key, espyOpts...)

	registry := tool.NewRegistry(tools.Default(tools.Deps{
		Config:   cfg,
		Services: table,
		ESPY:     espyClient,
	}), tool.WithObserver(m))

	var ac anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		ac = anthropicpkg.NewClient(cfg.Anthropic.Key)
	} else {
		zap.L().Info("OSINT_ANTHROPIC_KEY not set, language-model steps use heuristic fallbacks")
	}
	svc := llm.New(ac, cfg.Anthropic)

	var geoOpts []opencage.Option
	if cfg.OpenCage.BaseURL != "" {
		geoOpts = append(geoOpts, opencage.WithBaseURL(cfg.OpenCage.BaseURL))
	}
	geocoder := opencage.NewClient(cfg.OpenCage.Key, geoOpts...)

	opts := []orchestrator.Option{
		orchestrator.WithMetrics(m),
		orchestrator.WithGeocoder(geocoder, cfg.OpenCage.Language),
		orchestrator.WithLinkCache(linkcache.New(cfg.LinkCache.TTL)),
		orchestrator.WithResolver(resolve.New(cfg.Region.DefaultCountry)),
	}

	env := &appEnv{
		Registry:    registry,
		Planner:     plan.NewPlanner(svc),
		Executor:    plan.NewExecutor(registry, cfg.Scrape, cfg.Hyperbrowser.ScrapeTimeout),
		ESPY:        espyClient,
		Metrics:     m,
		MetricsHTTP: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	if persist && cfg.Store.Driver != "none" {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		env.Store = st
		opts = append(opts, orchestrator.WithStore(st))
	}

	env.Orchestrator = orchestrator.New(registry, svc, opts...)

	zap.L().Info("environment ready",
		zap.Strings("tools", registry.Names()),
		zap.Bool("llm", svc.Available()),
		zap.Bool("store", env.Store != nil),
	)
	return env, nil
}

// initStore opens the configured run store.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "osint.db"
		}
		st, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
