package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/data/mongo"
	"github.com/sudosos-ledger/internal/ledger/components"
	"github.com/sudosos-ledger/internal/logger"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

var (
	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operator tasks for the ledger",
	Long: `ledgerctl runs maintenance tasks directly against the ledger database:
recomputing cached balances, writing off closed accounts and importing
balances from the previous system.

Configuration is read from the environment, like the API and the worker.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("config")
		var err error
		if cfg, err = config.LoadConfig(name); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		log = logger.NewLogger(cfg).With("command", cmd.Name())
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "ledgerctl", "Name of the .env config file to read")
}

// ledger is an open connection to the stores plus the services running on them
type ledger struct {
	services *components.Services
	postgres *persistence.PostgresDB
	mongo    *persistence.MongoDB
}

func openLedger(ctx context.Context) (*ledger, error) {
	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	mongoDB, err := persistence.NewMongoDB(ctx, log, &cfg.MongoDB)
	if err != nil {
		postgresDB.Close()
		return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
	}

	repos := components.NewPostgresRepositories(postgresDB, cfg.Ledger, log)
	repos.BalanceCache = mongo.NewBalanceCacheRepository(log, mongoDB.Database())

	services, err := components.CreateServices(postgresDB, repos, log, cfg)
	if err != nil {
		postgresDB.Close()
		_ = mongoDB.Close(ctx)
		return nil, err
	}

	return &ledger{services: services, postgres: postgresDB, mongo: mongoDB}, nil
}

func (l *ledger) Close(ctx context.Context) {
	l.services.Shutdown()
	l.postgres.Close()
	if err := l.mongo.Close(ctx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}
}
