// @title         TED ingest read API
// @version       1.0
// @description   Read only endpoints over tb.ted_staging_std and tb.ted_runs
// @BasePath      /api/v1

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tedingest/internal/modkit/repokit"
	"tedingest/internal/platform/config"
	"tedingest/internal/platform/logger"
	phttp "tedingest/internal/platform/net/http"
	"tedingest/internal/platform/store"

	"tedingest/internal/services/api"
)

func main() {
	if err := config.LoadDotenv(".env"); err != nil {
		logger.Get().Fatal().Err(err).Msg("dotenv")
	}
	if err := config.LoadFile(os.Getenv("TED_CONFIG_FILE")); err != nil {
		logger.Get().Fatal().Err(err).Msg("config file")
	}

	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	l := logger.Named("ted-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// postgres is optional here; without it only /meta is served
	st, err := store.Open(ctx, store.FromConfig(root, "ted-api"), store.WithLogger(*l))
	if err != nil {
		l.Fatal().Err(err).Msg("store.Open failed")
	}
	repokit.MustGuard(ctx, st)
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// http server (reads CORE_API_API_PORT / CORE_API_SHUTDOWN_GRACE)
	srv := phttp.NewServer(apiCfg)

	reg := api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
			CORSOrigins:    apiCfg.MayCSV("CORS_ORIGINS", []string{"*"}),
			SlowRequest:    apiCfg.MayDuration("SLOW_REQUEST", 0),
		},
	)
	l.Info().Strs("modules", reg.Names()).Msg("api modules mounted")

	if err := srv.Run(ctx); err != nil {
		l.Error().Err(err).Msg("http server stopped")
		stop()
		os.Exit(1)
	}
}
