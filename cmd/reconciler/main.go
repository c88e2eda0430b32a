package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"studiovault/internal/api/v1/router"
	"studiovault/internal/config"
	"studiovault/internal/database"
	"studiovault/internal/logger"
	"studiovault/internal/orchestrator/reconcile"
	"studiovault/internal/secrets"

	"github.com/joho/godotenv"
)

func main() {
	once := flag.Bool("once", false, "Run a single reconciliation pass and exit")
	flag.Parse()

	logger := logger.New().With().Str("component", "reconciler").Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Error loading config")
	}
	if err := secrets.ResolveConfig(context.Background(), cfg); err != nil {
		logger.Fatal().Err(err).Msg("Failed to resolve secrets")
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DBConnectionString, cfg.DBMaxConns, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	svcs, err := router.NewServices(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build services")
	}
	defer svcs.Close()

	opts := reconcile.Options{
		Interval:   cfg.ReconcileInterval(),
		StaleAfter: cfg.ReconcileStaleAfter(),
		BatchSize:  cfg.ReconcileBatchSize,
	}
	if *once {
		report, err := svcs.Payments.ReconcileStale(ctx, opts.StaleAfter, opts.BatchSize)
		if err != nil {
			logger.Fatal().Err(err).Msg("Reconciliation failed")
		}
		logger.Info().Int("checked", report.Checked).Int("succeeded", report.Succeeded).Int("failed", report.Failed).Msg("Reconciliation pass complete")
		return
	}

	if err := reconcile.Run(ctx, logger, svcs.Payments, opts); err != nil {
		logger.Fatal().Err(err).Msg("Reconciler failed")
	}
	logger.Info().Msg("Reconciler stopped gracefully")
}
