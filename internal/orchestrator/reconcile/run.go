package reconcile

import (
	"context"
	"time"

	"studiovault/internal/service"

	"github.com/rs/zerolog"
)

// Reconciler re-verifies pending payments that no webhook has settled.
type Reconciler interface {
	ReconcileStale(ctx context.Context, staleAfter time.Duration, limit int) (service.ReconcileReport, error)
}

// Options controls the reconciliation loop.
type Options struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
}

// Run reconciles once immediately and then on every tick until ctx is done.
func Run(ctx context.Context, logger zerolog.Logger, r Reconciler, opts Options) error {
	logger.Info().
		Dur("interval", opts.Interval).
		Dur("stale_after", opts.StaleAfter).
		Int("batch_size", opts.BatchSize).
		Msg("Starting payment reconciler")

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	for {
		runOnce(ctx, logger, r, opts)
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down payment reconciler")
			return nil
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, logger zerolog.Logger, r Reconciler, opts Options) {
	report, err := r.ReconcileStale(ctx, opts.StaleAfter, opts.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error().Err(err).Msg("Error reconciling stale payments")
		return
	}
	if report.Checked == 0 {
		logger.Debug().Msg("No stale payments")
		return
	}
	logger.Info().
		Int("checked", report.Checked).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("pending", report.Pending).
		Int("errors", report.Errors).
		Msg("Reconciled stale payments")
}
