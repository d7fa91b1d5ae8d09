package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sudosos-ledger/internal/api_gateway"
	"github.com/sudosos-ledger/internal/api_gateway/service"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/data/mongo"
	"github.com/sudosos-ledger/internal/ledger/components"
	"github.com/sudosos-ledger/internal/logger"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	if cfg.Postgres.MigrationsPath != "" {
		if err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
			log.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		log.Info("Database migrations applied", "path", cfg.Postgres.MigrationsPath)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	if err := mongoDB.EnsureIndexes(appCtx, mongo.EventCollectionName, mongo.EventIndexes()...); err != nil {
		log.Error("Failed to ensure MongoDB indexes", "error", err)
		os.Exit(1)
	}

	repos := components.NewPostgresRepositories(postgresDB, cfg.Ledger, log)
	repos.BalanceCache = mongo.NewBalanceCacheRepository(log, mongoDB.Database())

	ledgerServices, err := components.CreateServices(postgresDB, repos, log, cfg)
	if err != nil {
		log.Error("Failed to create ledger services", "error", err)
		os.Exit(1)
	}

	server := api_gateway.NewServer(log, cfg, service.Services{
		Balances:     ledgerServices.Balances,
		Transfers:    ledgerServices.Transfers,
		Transactions: ledgerServices.Transactions,
		Invoices:     ledgerServices.Invoices,
		WriteOffs:    ledgerServices.WriteOffs,
		Payouts:      ledgerServices.Payouts,
		Summary:      ledgerServices.Summary,
		Activity:     service.NewActivityService(log, mongo.NewEventRepository(log, mongoDB.Database())),
	})

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the pools go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	ledgerServices.Shutdown()
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
