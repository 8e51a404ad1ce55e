package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runFlags struct{ date, issue string }

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest one daily package",
	Long:  "Without --issue the package id is resolved from --date first. --date is also the published_at fallback.",
	Example: "  ted-ingest run --date=2025-10-10\n" +
		"  ted-ingest run --date=2025-10-10 --issue=202500197",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		req, err := request(runFlags.date, runFlags.issue)
		if err != nil {
			return err
		}
		a, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		sum, err := a.runner().Run(cmd.Context(), req)
		if sum != nil {
			printJSON(cmd.OutOrStdout(), sum)
		}
		return err
	},
}

var resolveFlags struct{ date string }

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the package id published on a day",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		day, err := parseDay("date", resolveFlags.date)
		if err != nil {
			return err
		}
		a := openOffline()
		id, err := a.runner().Resolve(cmd.Context(), day)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.date, "date", "", "publication day YYYY-MM-DD")
	runCmd.Flags().StringVar(&runFlags.issue, "issue", "", "package id YYYYNNNNN; skips resolution")
	resolveCmd.Flags().StringVar(&resolveFlags.date, "date", "", "publication day YYYY-MM-DD")
	_ = resolveCmd.MarkFlagRequired("date")

	rootCmd.AddCommand(runCmd, resolveCmd)
}
