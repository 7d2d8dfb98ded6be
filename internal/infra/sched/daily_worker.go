package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"chat-billing/internal/infra/metrics"
	"chat-billing/internal/usecase"
)

// runTimeout bounds a single job run so a stuck store cannot wedge the ticker loop.
const runTimeout = 10 * time.Minute

// DailyWorker periodically runs the daily maintenance batch: renewal reminders,
// expired-subscription downgrades and the pending-link sweep.
type DailyWorker struct {
	interval time.Duration
	maintUC  usecase.MaintenanceUseCase
	log      *zerolog.Logger
}

func NewDailyWorker(interval time.Duration, maintUC usecase.MaintenanceUseCase, logger *zerolog.Logger) *DailyWorker {
	compLog := logger.With().Str("component", "DailyWorker").Logger()
	return &DailyWorker{
		interval: interval,
		maintUC:  maintUC,
		log:      &compLog,
	}
}

func (w *DailyWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting daily worker")
	// Run once on startup, then on every tick
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping daily worker")
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *DailyWorker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	err := w.maintUC.RunDailySubscriptionTasks(runCtx, start)
	metrics.ObserveJobRun("daily", time.Since(start), err)
	if err != nil {
		w.log.Error().Err(err).Msg("daily run failed")
		return
	}
	w.log.Info().Dur("took", time.Since(start)).Msg("daily run finished")
}
