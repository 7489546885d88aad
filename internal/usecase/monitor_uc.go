// File: internal/usecase/monitor_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/adapter"
	"telegram-channel-booster/internal/domain/ports/repository"
)

const (
	defaultGuardTTL   = 5 * time.Minute
	defaultFetchLimit = 100
)

// MonitorUseCase drives monitoring cycles. One pass walks every enabled
// source that is due, fetches items past its high-water-mark and hands each
// item to the action's processor. Sources are worked strictly one at a time;
// a failing source is marked and skipped, never allowed to stall the rest.
type MonitorUseCase struct {
	sources    repository.SourceRepository
	logs       repository.OperationLogRepository
	fetcher    adapter.MessageSourceClient
	health     HealthUseCase
	guard      CycleGuard
	progress   ProgressCache
	processors map[model.SourceAction]itemProcessor
	guardTTL   time.Duration
	fetchLimit int
	log        *zerolog.Logger

	mu sync.Mutex // serializes cycles within this process
}

func NewMonitorUseCase(
	sources repository.SourceRepository,
	logs repository.OperationLogRepository,
	fetcher adapter.MessageSourceClient,
	health HealthUseCase,
	guard CycleGuard,
	progress ProgressCache,
	boost *BoostUseCase,
	repost *RepostUseCase,
	guardTTL time.Duration,
	fetchLimit int,
	logger *zerolog.Logger,
) *MonitorUseCase {
	if guardTTL <= 0 {
		guardTTL = defaultGuardTTL
	}
	if fetchLimit <= 0 {
		fetchLimit = defaultFetchLimit
	}
	compLog := logger.With().Str("component", "MonitorUC").Logger()
	return &MonitorUseCase{
		sources: sources,
		logs:    logs,
		fetcher: fetcher,
		health:  health,
		guard:   guard,
		progress: progress,
		processors: map[model.SourceAction]itemProcessor{
			model.ActionBoost:  boost,
			model.ActionRepost: repost,
		},
		guardTTL:   guardTTL,
		fetchLimit: fetchLimit,
		log:        &compLog,
	}
}

// MonitorAll runs one pass over every enabled source that is due for a check.
// It returns how many items were processed. Per-source failures are logged
// and isolated; only a cancelled context or a failed source listing aborts
// the pass.
func (uc *MonitorUseCase) MonitorAll(ctx context.Context) (int, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	list, err := uc.sources.ListEnabled(ctx, repository.NoTX)
	if err != nil {
		return 0, fmt.Errorf("list enabled sources: %w", err)
	}

	now := time.Now()
	processed := 0
	for _, src := range list {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if !src.Due(now) {
			continue
		}
		n, cerr := uc.checkSource(ctx, src)
		processed += n
		if cerr != nil {
			if ctx.Err() != nil {
				return processed, ctx.Err()
			}
			uc.log.Error().Err(cerr).
				Str("source_id", src.ID).
				Int64("channel_id", src.ChannelID).
				Msg("source cycle failed")
		}
	}
	return processed, nil
}

// KickByChannel runs an immediate cycle for the source watching channelID.
// Used by the update poller when a monitored channel posts.
func (uc *MonitorUseCase) KickByChannel(ctx context.Context, channelID int64) (int, error) {
	src, err := uc.sources.FindByChannelID(ctx, repository.NoTX, channelID)
	if err != nil {
		return 0, err
	}
	if !src.Enabled {
		return 0, domain.ErrSourceDisabled
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.checkSource(ctx, src)
}

// checkSource runs one cycle for a single source under its cross-process
// guard: touch the check timestamp, fetch, process each item in order, and
// clear a previous error state once the cycle completes.
func (uc *MonitorUseCase) checkSource(ctx context.Context, src *model.SourceConfig) (int, error) {
	token, err := uc.guard.Acquire(ctx, src.ID, uc.guardTTL)
	if err != nil {
		if errors.Is(err, domain.ErrCycleInFlight) {
			uc.log.Debug().Str("source_id", src.ID).Msg("cycle already in flight, skipping")
			return 0, nil
		}
		return 0, err
	}
	defer func() {
		if rerr := uc.guard.Release(context.Background(), src.ID, token); rerr != nil {
			uc.log.Warn().Err(rerr).Str("source_id", src.ID).Msg("cycle guard release failed")
		}
	}()

	if err := uc.sources.TouchLastChecked(ctx, repository.NoTX, src.ID, time.Now().UTC()); err != nil {
		return 0, err
	}

	items, err := uc.fetcher.FetchItemsAfter(ctx, src.ChannelID, src.LastProcessedID, uc.fetchLimit)
	if err != nil {
		return 0, uc.handleSourceFailure(ctx, src, "fetch", err)
	}
	if len(items) == 0 {
		return 0, uc.clearErrorState(ctx, src)
	}

	proc, ok := uc.processors[src.Action]
	if !ok {
		return 0, fmt.Errorf("%w: no processor for action %q", domain.ErrInvalidArgument, src.Action)
	}

	processed := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if item.ID <= src.LastProcessedID {
			continue
		}
		if perr := proc.ProcessItem(ctx, src, item); perr != nil {
			return processed, uc.handleSourceFailure(ctx, src, "process", perr)
		}
		src.LastProcessedID = item.ID
		if uc.progress != nil {
			uc.progress.Set(ctx, src.ChannelID, item.ID)
		}
		processed++
	}

	uc.log.Debug().
		Str("source_id", src.ID).
		Int64("channel_id", src.ChannelID).
		Int("items", processed).
		Msg("cycle complete")
	return processed, uc.clearErrorState(ctx, src)
}

// clearErrorState flips a source back to active after a clean cycle.
func (uc *MonitorUseCase) clearErrorState(ctx context.Context, src *model.SourceConfig) error {
	if src.Status == model.SourceStatusActive {
		return nil
	}
	if err := uc.sources.UpdateStatus(ctx, repository.NoTX, src.ID, model.SourceStatusActive, nil); err != nil {
		return err
	}
	src.Status = model.SourceStatusActive
	src.LastError = nil
	return nil
}

// handleSourceFailure records a cycle failure on the source. Permission
// failures disable the source through the health use case; everything else
// flips it to the error state and leaves it enabled for the next tick.
func (uc *MonitorUseCase) handleSourceFailure(ctx context.Context, src *model.SourceConfig, stage string, err error) error {
	if ctx.Err() != nil {
		return err
	}

	detail := errorDetail(err)
	detail["stage"] = stage

	if domain.IsPermissionDenied(err) {
		if herr := uc.health.MarkPermissionError(ctx, src, err); herr != nil {
			uc.log.Error().Err(herr).Str("source_id", src.ID).Msg("failed to disable source after permission error")
		}
		detail["disabled"] = true
	} else {
		msg := err.Error()
		if uerr := uc.sources.UpdateStatus(ctx, repository.NoTX, src.ID, model.SourceStatusError, &msg); uerr != nil {
			uc.log.Error().Err(uerr).Str("source_id", src.ID).Msg("failed to record source error state")
		} else {
			src.Status = model.SourceStatusError
			src.LastError = &msg
		}
	}

	if aerr := uc.logs.Append(ctx, repository.NoTX, newLogEntry(src, 0, model.OutcomeError, detail)); aerr != nil {
		uc.log.Warn().Err(aerr).Str("source_id", src.ID).Msg("failed to append source error entry")
	}
	return err
}
