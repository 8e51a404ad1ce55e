// Command ted-ingest loads TED daily packages and single notices into the
// staging tables
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tedingest/internal/platform/config"
	"tedingest/internal/platform/logger"
	"tedingest/internal/platform/metrics"
)

var rootCmd = &cobra.Command{
	Use:   "ted-ingest",
	Short: "TED daily package ingester",
	Long: "ted-ingest resolves the TED daily package for a publication day, streams its XML notices " +
		"through the normalizer and upserts the eligible ones into tb.ted_staging_std.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

var (
	envFiles    []string
	configFile  string
	metricsFile string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringSliceVar(&envFiles, "env", []string{".env"}, "dotenv files to load; missing files are ignored")
	pf.StringVar(&configFile, "config", "", "YAML overlay of KEY: value pairs (default $TED_CONFIG_FILE)")
	pf.StringVar(&metricsFile, "metrics-file", "", "write Prometheus text exposition here on exit")
}

// loadConfig runs before every command so the logger sees LOG_* from files
func loadConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotenv(envFiles...); err != nil {
		return err
	}
	path := configFile
	if path == "" {
		path = os.Getenv("TED_CONFIG_FILE")
	}
	return config.LoadFile(path)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	log := logger.Named("ted-ingest")
	if metricsFile != "" {
		if werr := metrics.WriteTextfile(metricsFile); werr != nil {
			log.Warn().Err(werr).Str("path", metricsFile).Msg("metrics textfile not written")
		}
	}
	if err != nil {
		log.Error().Err(err).Msg("ted-ingest failed")
		os.Exit(1)
	}
}
