// Package api mounts the read-only HTTP API over the staging tables
package api

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"tedingest/internal/modkit"
	"tedingest/internal/modkit/httpkit"
	"tedingest/internal/modkit/module"
	"tedingest/internal/modkit/swaggerkit"
	"tedingest/internal/platform/config"
	"tedingest/internal/platform/logger"
	"tedingest/internal/platform/metrics"
	phttp "tedingest/internal/platform/net/http"
	"tedingest/internal/platform/net/middleware"
	"tedingest/internal/platform/store"

	metamod "tedingest/internal/services/api/meta/module"
	noticesmod "tedingest/internal/services/api/notices/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
	CORSOrigins    []string
	SlowRequest    time.Duration
}

// Mount mounts the API service onto the given router and returns the
// modules it serves under /api/v1
func Mount(r phttp.Router, opt Options) *module.Registry {
	deps := modkit.Deps{Cfg: opt.Config}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}
	if opt.Store != nil {
		deps.PG, deps.CH = opt.Store.PG, opt.Store.CH
	}

	r.Use(
		middleware.Metrics,
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: opt.SlowRequest}),
		middleware.Heartbeat("/health"),
	)
	r.Handle("/metrics", metrics.Handler())
	swaggerkit.Mount(r, opt.EnableSwagger)
	if opt.EnableProfiler {
		mountProfiler(r)
	}

	mods := []module.Module{
		metamod.New(deps),
	}
	if deps.PG != nil {
		mods = append(mods, noticesmod.New(deps))
	} else if opt.Logger != nil {
		opt.Logger.Warn().Msg("SERVICE_PGSQL_DBURL not set, notice routes disabled")
	}

	reg := module.NewRegistry()
	httpkit.MountModules(r, httpkit.APIVersion, httpkit.CommonStack(opt.CORSOrigins), reg, mods...)
	return reg
}

// mountProfiler serves pprof under /debug/pprof/
func mountProfiler(r phttp.Router) {
	h := http.StripPrefix("/debug", chimw.Profiler())
	r.Handle("/debug/*", h)
}
