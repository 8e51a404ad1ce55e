// Package module provides the ingest module implementation
package module

import (
	"context"

	"tedingest/internal/adapters/ingest/tedhttp"
	"tedingest/internal/adapters/ingest/tednotice"
	"tedingest/internal/adapters/ingest/tedpkg"
	"tedingest/internal/core/notice"
	"tedingest/internal/modkit"
	"tedingest/internal/modkit/repokit"
	"tedingest/internal/platform/bus"
	perr "tedingest/internal/platform/errors"
	phttp "tedingest/internal/platform/net/http"
	"tedingest/internal/services/ingest/domain"
	"tedingest/internal/services/ingest/repo"
	"tedingest/internal/services/ingest/service"
)

var _ domain.RunnerPort = (*service.Service)(nil)

// Ports defines the ingest module ports
type Ports struct {
	Runner domain.RunnerPort

	// Notices fetches single notices for the scan and page producers
	Notices *tednotice.Client
	Scan    tednotice.ScanOptions
}

// Module implements the ingest module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the ingest module from deps.Cfg
func New(deps modkit.Deps) *Module { return build(deps, false) }

// NewOffline builds the module for commands that never write, such as
// resolve and save-raw. Its sink refuses every write.
func NewOffline(deps modkit.Deps) *Module { return build(deps, true) }

func build(deps modkit.Deps, offline bool) *Module {
	opts := FromConfig(deps.Cfg)
	log := deps.Log.With().Str("module", "ingest").Logger()

	pkgHTTP := tedhttp.NewClient(opts.HTTP)
	resolver := tedpkg.NewResolver(pkgHTTP, tedpkg.ResolverOptions{
		From:   opts.ProbeFrom,
		To:     opts.ProbeTo,
		Delay:  opts.ProbeDelay,
		Jitter: opts.ProbeJitter,
	})

	var fetch domain.Fetcher = tedpkg.NewHTTPFetcher(pkgHTTP)
	if opts.CacheDir != "" {
		fetch = tedpkg.NewCachedFetcher(opts.CacheDir, pkgHTTP,
			tedpkg.WithRevalidate(opts.Revalidate),
			tedpkg.WithRetention(opts.RetainMaxAge, opts.RetainMaxBytes),
		)
	}

	norm := notice.NewNormalizer()
	norm.Source = opts.Source

	var (
		sink      domain.Sink
		recorders []domain.RunRecorder
		db        = deps.PG
	)
	if db != nil && opts.Timeouts.DB > 0 {
		db = repokit.WithBeginHooks(db, repokit.StatementTimeout(opts.Timeouts.DB))
	}
	switch {
	case offline:
		sink = offlineSink{}
	case opts.Sink == SinkREST:
		sink = repo.NewREST(opts.REST)
	case db != nil:
		pg := repo.NewPGSink(db, repo.NewPG(), opts.BatchRows)
		sink = pg
		recorders = append(recorders, pg)
	default:
		log.Panic().Msg("ingest: pg sink selected but SERVICE_PGSQL_DBURL is not set")
	}
	if opts.Sink == SinkREST && db != nil && !offline {
		// runs are still audited in postgres when it is reachable
		recorders = append(recorders, repo.NewPGSink(db, repo.NewPG(), opts.BatchRows))
	}
	if deps.CH != nil && !offline {
		recorders = append(recorders, repo.NewAudit(deps.CH))
	}
	if deps.Bus != nil && !offline {
		recorders = append(recorders, repo.Events{Pub: deps.Bus, Subject: bus.FromConfig(deps.Cfg, "").Subject})
	}

	svc := service.New(resolver, fetch, norm, sink, service.Config{
		Source:      opts.Source,
		SaveRawDocs: opts.SaveRaw,
		Timeouts:    opts.Timeouts,
	}, recorders...)

	noticeHTTP := pkgHTTP
	if opts.NoticeBaseURL != opts.HTTP.BaseURL {
		o := opts.HTTP
		o.BaseURL = opts.NoticeBaseURL
		noticeHTTP = tedhttp.NewClient(o)
	}

	log.Info().
		Str("sink", sink.Name()).
		Bool("save_raw", opts.SaveRaw).
		Bool("cache", opts.CacheDir != "").
		Int("recorders", len(recorders)).
		Msg("ingest module ready")

	return &Module{
		deps: deps,
		opts: opts,
		ports: Ports{
			Runner:  svc,
			Notices: tednotice.NewClient(noticeHTTP),
			Scan:    opts.Scan,
		},
	}
}

// Name returns the module name
func (m *Module) Name() string { return "ingest" }

// MountRoutes is a no-op; ingest is driven from the CLI
func (m *Module) MountRoutes(phttp.Router) {}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Options returns the resolved configuration
func (m *Module) Options() Options { return m.opts }

// Scanner returns a per-notice scanner with the configured politeness
func (m *Module) Scanner() *tednotice.Scanner {
	return tednotice.NewScanner(m.ports.Notices, m.ports.Scan)
}

type offlineSink struct{}

func (offlineSink) Name() string { return "offline" }

func (offlineSink) WriteNotices(context.Context, string, []notice.Notice) (domain.SinkResult, error) {
	return domain.SinkResult{}, perr.Unavailablef("no sink in offline mode")
}
