package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending Postgres migrations",
	Long: `Migrate applies the SQL files in POSTGRES_MIGRATIONS_PATH and prints the
resulting schema version. With --status it only prints the current version.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "Print the schema version without migrating")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	statusOnly, _ := cmd.Flags().GetBool("status")
	path := cfg.Postgres.MigrationsPath
	if path == "" {
		path = "migrations/postgres"
	}

	if !statusOnly {
		if err := persistence.RunMigrations(cfg.Postgres.URL, path); err != nil {
			return err
		}
		log.Info("Database migrations applied", "path", path)
	}

	status, err := persistence.GetMigrationStatus(cfg.Postgres.URL, path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case !status.Applied:
		fmt.Fprintln(out, "No migrations applied")
	case status.Dirty:
		fmt.Fprintf(out, "Schema version %d (dirty, fix manually)\n", status.Version)
	default:
		fmt.Fprintf(out, "Schema version %d\n", status.Version)
	}
	return nil
}
