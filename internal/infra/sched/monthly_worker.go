package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"chat-billing/internal/infra/metrics"
	"chat-billing/internal/usecase"
)

// MonthlyWorker runs the monthly batch, which is the daily batch plus issuing
// the month's operator activation code. Generation is idempotent per calendar
// month, so a short interval only costs a no-op query.
type MonthlyWorker struct {
	interval time.Duration
	maintUC  usecase.MaintenanceUseCase
	log      *zerolog.Logger
}

func NewMonthlyWorker(interval time.Duration, maintUC usecase.MaintenanceUseCase, logger *zerolog.Logger) *MonthlyWorker {
	compLog := logger.With().Str("component", "MonthlyWorker").Logger()
	return &MonthlyWorker{
		interval: interval,
		maintUC:  maintUC,
		log:      &compLog,
	}
}

func (w *MonthlyWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting monthly worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping monthly worker")
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *MonthlyWorker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	err := w.maintUC.RunMonthlySubscriptionTasks(runCtx, start)
	metrics.ObserveJobRun("monthly", time.Since(start), err)
	if err != nil {
		w.log.Error().Err(err).Msg("monthly run failed")
		return
	}
	w.log.Info().Dur("took", time.Since(start)).Msg("monthly run finished")
}
