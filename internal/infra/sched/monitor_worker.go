package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/repository"
	"telegram-channel-booster/internal/infra/metrics"
	"telegram-channel-booster/internal/usecase"
)

// MonitorWorker is the engine's clock. It runs one monitoring pass over all
// due sources at startup and one per tick, and refreshes the source gauges
// after each pass.
type MonitorWorker struct {
	interval  time.Duration
	monitorUC *usecase.MonitorUseCase
	sources   repository.SourceRepository
	log       *zerolog.Logger
}

func NewMonitorWorker(interval time.Duration, monitorUC *usecase.MonitorUseCase, sources repository.SourceRepository, logger *zerolog.Logger) *MonitorWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	compLog := logger.With().Str("component", "MonitorWorker").Logger()
	return &MonitorWorker{
		interval:  interval,
		monitorUC: monitorUC,
		sources:   sources,
		log:       &compLog,
	}
}

func (w *MonitorWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting monitor worker")
	// Run once on startup, then on every tick
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping monitor worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *MonitorWorker) sweep(ctx context.Context) {
	start := time.Now()
	n, err := w.monitorUC.MonitorAll(ctx)
	metrics.ObserveCycle(time.Since(start), err != nil)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Error().Err(err).Msg("monitor pass failed")
	}
	if n > 0 {
		w.log.Info().Int("items", n).Msg("monitor pass settled items")
	}
	w.refreshSourceGauges(ctx)
}

func (w *MonitorWorker) refreshSourceGauges(ctx context.Context) {
	list, err := w.sources.List(ctx, repository.NoTX)
	if err != nil {
		w.log.Warn().Err(err).Msg("failed to refresh source gauges")
		return
	}
	enabled, disabled := 0, 0
	for _, src := range list {
		switch {
		case src.Enabled:
			enabled++
		case src.Status == model.SourceStatusError:
			disabled++
		}
	}
	metrics.SetActiveSources(enabled)
	metrics.SetDisabledSources(disabled)
}
