package main

import (
	"time"

	"github.com/spf13/cobra"

	"tedingest/internal/adapters/ingest/tednotice"
	"tedingest/internal/modkit/module"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/services/ingest/service"
)

var scanFlags struct {
	year     int
	from, to int
	date     string
}

var scanCmd = &cobra.Command{
	Use:   "scan-notices",
	Short: "Walk notice numbers downward for one year and ingest every hit",
	Long: "Notices are fetched one at a time with the CORE_NOTICE_* delay and jitter. " +
		"The scan stops at --to or after CORE_NOTICE_MAX_MISS consecutive misses.",
	Example: "  ted-ingest scan-notices --year=2025 --from=612000 --to=600000",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if scanFlags.year < 1993 || scanFlags.from <= 0 {
			return perr.InvalidArgf("--year and --from are required")
		}
		if scanFlags.to > scanFlags.from {
			return perr.WithField(perr.InvalidArgf("--to must not exceed --from"), "to")
		}
		day, err := parseDay("date", scanFlags.date)
		if err != nil {
			return err
		}
		a, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		src := &service.ScanSource{
			Scanner: a.mod.Scanner(),
			Year:    scanFlags.year,
			From:    scanFlags.from,
			To:      scanFlags.to,
		}
		sum, err := a.runner().IngestDocuments(cmd.Context(), src, day)
		a.log.Info().
			Int("probed", src.Stats.Probed).
			Int("hits", src.Stats.Hits).
			Int("throttled", src.Stats.Throttled).
			Int("last", src.Stats.Last).
			Bool("exhausted", src.Stats.Exhausted).
			Msg("scan finished")
		if sum != nil {
			printJSON(cmd.OutOrStdout(), sum)
		}
		return err
	},
}

var fetchFlags struct{ date string }

var fetchCmd = &cobra.Command{
	Use:   "fetch-notice <url>",
	Short: "Ingest the XML behind one notice detail page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDay("date", fetchFlags.date)
		if err != nil {
			return err
		}
		if day.IsZero() {
			day = time.Now().UTC().Truncate(24 * time.Hour)
		}
		a, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		src := &service.PageSource{
			Client: module.MustPortsOf[*tednotice.Client](a.mod),
			URL:    args[0],
		}
		sum, err := a.runner().IngestDocuments(cmd.Context(), src, day)
		if sum != nil {
			printJSON(cmd.OutOrStdout(), sum)
		}
		return err
	},
}

func init() {
	scanCmd.Flags().IntVar(&scanFlags.year, "year", 0, "notice year")
	scanCmd.Flags().IntVar(&scanFlags.from, "from", 0, "first notice number, scanned downward")
	scanCmd.Flags().IntVar(&scanFlags.to, "to", 1, "lowest notice number to probe")
	scanCmd.Flags().StringVar(&scanFlags.date, "date", "", "published_at fallback YYYY-MM-DD")

	fetchCmd.Flags().StringVar(&fetchFlags.date, "date", "", "published_at fallback YYYY-MM-DD (default today)")

	rootCmd.AddCommand(scanCmd, fetchCmd)
}
