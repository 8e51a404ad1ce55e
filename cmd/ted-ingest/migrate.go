package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tedingest/internal/platform/config"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
	"tedingest/internal/platform/store"
	"tedingest/internal/platform/store/migrate"
	"tedingest/internal/services/ingest/repo"
)

var migrateFlags struct{ clickhouse bool }

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the tb schema in SERVICE_PGSQL_DBURL",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := openMigrator()
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()
		if err := m.Up(); err != nil {
			return err
		}
		if migrateFlags.clickhouse {
			if err := ensureClickhouse(cmd); err != nil {
				return err
			}
		}
		return printVersion(cmd, m)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [n]",
	Short: "Roll back n migrations, all of them when n is omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := parseSteps(args)
		if err != nil {
			return err
		}
		m, err := openMigrator()
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()
		if err := m.Down(steps); err != nil {
			return err
		}
		return printVersion(cmd, m)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := openMigrator()
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()
		return printVersion(cmd, m)
	},
}

func openMigrator() (*migrate.Migrator, error) {
	dsn := store.FromConfig(config.New(), appName).PG.URL
	if dsn == "" {
		return nil, perr.InvalidArgf("SERVICE_PGSQL_DBURL is required")
	}
	return migrate.Open(dsn)
}

// ensureClickhouse creates the run audit table
func ensureClickhouse(cmd *cobra.Command) error {
	cfg := store.FromConfig(config.New(), appName)
	if !cfg.CH.Enabled {
		return perr.InvalidArgf("SERVICE_CLICKHOUSE_ENABLED is not set")
	}
	cfg.PG.Enabled = false
	st, err := store.Open(cmd.Context(), cfg, store.WithLogger(*logger.Named(appName)))
	if err != nil {
		return err
	}
	defer func() { _ = st.Close(cmd.Context()) }()
	return repo.EnsureAuditTable(cmd.Context(), st.CH)
}

func printVersion(cmd *cobra.Command, m *migrate.Migrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", v, dirty)
	return nil
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, perr.InvalidArgf("steps must be a positive integer, got %q", args[0])
	}
	return n, nil
}

func init() {
	migrateUpCmd.Flags().BoolVar(&migrateFlags.clickhouse, "clickhouse", false, "also create the ClickHouse run audit table")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
