package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aurora-banking-core/internal/accounts"
	"github.com/aurora-banking-core/internal/api"
	"github.com/aurora-banking-core/internal/cards"
	"github.com/aurora-banking-core/internal/cardtoken"
	"github.com/aurora-banking-core/internal/compliance"
	"github.com/aurora-banking-core/internal/config"
	"github.com/aurora-banking-core/internal/data/postgres"
	"github.com/aurora-banking-core/internal/ledger"
	"github.com/aurora-banking-core/internal/logger"
	"github.com/aurora-banking-core/internal/platform/messaging/producers"
	"github.com/aurora-banking-core/internal/platform/persistence"
	"github.com/aurora-banking-core/internal/reconciler"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for the settled-transaction event feed
	settlementProducer, err := producers.NewSettlementEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize settlement event producer", "error", err)
		os.Exit(1)
	}

	// Initialize the settlement authority client
	complianceClient := compliance.NewClient(log, &cfg.Compliance)

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	cardRepo := postgres.NewCardRepository(log, postgresDB)

	// Initialize services
	reconcilerService, err := reconciler.NewService(log, reconciler.Config{PoolSize: cfg.Reconciler.PoolSize}, accountRepo, transactionRepo, complianceClient)
	if err != nil {
		log.Error("Failed to initialize reconciler", "error", err)
		os.Exit(1)
	}
	accountService := accounts.NewService(log, accountRepo, complianceClient)
	ledgerService := ledger.NewService(log, &cfg.Compliance, accountRepo, transactionRepo, complianceClient, reconcilerService, settlementProducer)
	cardService := cards.NewService(log, cardRepo, accountRepo, cardtoken.NewTokenizer(cfg.Card.SecretKey))

	// Initialize REST server
	server := api.NewServer(log, cfg, accountService, ledgerService, cardService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so in-flight requests drain before their
	// dependencies go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	reconcilerService.Shutdown()

	if err = settlementProducer.Close(); err != nil {
		log.Error("Error closing settlement event producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
