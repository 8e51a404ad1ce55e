package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"tedingest/internal/modkit"
	"tedingest/internal/modkit/module"
	"tedingest/internal/platform/bus"
	"tedingest/internal/platform/config"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
	"tedingest/internal/platform/store"
	"tedingest/internal/services/ingest/domain"
	ingestmod "tedingest/internal/services/ingest/module"
)

const appName = "ted-ingest"

// app owns the connections one command needs
type app struct {
	log *logger.Logger
	st  *store.Store
	pub bus.Publisher
	mod *ingestmod.Module
}

// openOffline wires the package client and resolver without any database
func openOffline() *app {
	log := logger.Named(appName)
	return &app{
		log: log,
		mod: ingestmod.NewOffline(modkit.Deps{Log: *log, Cfg: config.New()}),
	}
}

// open connects the stores and the bus the ingest module writes to
func open(ctx context.Context) (*app, error) {
	cfg := config.New()
	log := logger.Named(appName)

	scfg := store.FromConfig(cfg, appName)
	if ingestmod.FromConfig(cfg).Sink == ingestmod.SinkPG && !scfg.PG.Enabled {
		return nil, perr.InvalidArgf("SERVICE_PGSQL_DBURL is required for the pg sink")
	}
	st, err := store.Open(ctx, scfg, store.WithLogger(*log))
	if err != nil {
		return nil, err
	}
	pub, err := bus.Open(bus.FromConfig(cfg, appName))
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	deps := modkit.Deps{Log: *log, Cfg: cfg, PG: st.PG, CH: st.CH}
	if _, nop := pub.(bus.Nop); !nop {
		deps.Bus = pub
	}
	return &app{log: log, st: st, pub: pub, mod: ingestmod.New(deps)}, nil
}

func (a *app) runner() domain.RunnerPort { return module.MustPortsOf[domain.RunnerPort](a.mod) }

func (a *app) close() {
	if a.pub != nil {
		a.pub.Close()
	}
	if a.st != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.st.Close(ctx); err != nil {
			a.log.Error().Err(err).Msg("failed to close store")
		}
	}
}

// printJSON writes v indented; summaries go to stdout even when the run failed
func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// parseDay reads a YYYY-MM-DD flag; empty is the zero time
func parseDay(flag, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(domain.DayLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, perr.WithField(perr.InvalidArgf("--%s must look like YYYY-MM-DD, got %q", flag, v), flag)
	}
	return d, nil
}

// request builds a run request; at least one of date or issue is needed
func request(date, issue string) (domain.Request, error) {
	day, err := parseDay("date", date)
	if err != nil {
		return domain.Request{}, err
	}
	if day.IsZero() && issue == "" {
		return domain.Request{}, perr.InvalidArgf("--date or --issue is required")
	}
	return domain.Request{Date: day, Issue: issue}, nil
}
