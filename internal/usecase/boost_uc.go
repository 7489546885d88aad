// File: internal/usecase/boost_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/adapter"
	"telegram-channel-booster/internal/domain/ports/repository"
)

// Compile-time check
var _ itemProcessor = (*BoostUseCase)(nil)

// BoostUseCase applies the reaction action to fetched items. For each item it
// picks a random subset of the configured emoji set, adds the reactions one
// by one with a jittered pause in between, and settles the item by writing
// the ledger row, the audit entry, the stats increment and the high-water-mark
// advance in a single transaction.
type BoostUseCase struct {
	sources repository.SourceRepository
	ledger  repository.BoostLedgerRepository
	logs    repository.OperationLogRepository
	stats   repository.SourceStatsRepository
	txm     repository.TransactionManager
	actions adapter.MessageActionClient
	log     *zerolog.Logger

	sleep sleepFunc
}

func NewBoostUseCase(
	sources repository.SourceRepository,
	ledger repository.BoostLedgerRepository,
	logs repository.OperationLogRepository,
	stats repository.SourceStatsRepository,
	txm repository.TransactionManager,
	actions adapter.MessageActionClient,
	logger *zerolog.Logger,
) *BoostUseCase {
	compLog := logger.With().Str("component", "BoostUC").Logger()
	return &BoostUseCase{
		sources: sources,
		ledger:  ledger,
		logs:    logs,
		stats:   stats,
		txm:     txm,
		actions: actions,
		log:     &compLog,
		sleep:   ctxSleep,
	}
}

func (uc *BoostUseCase) ProcessItem(ctx context.Context, src *model.SourceConfig, item model.Item) error {
	if src.Boost == nil {
		return domain.ErrInvalidArgument
	}

	acted, err := uc.ledger.Exists(ctx, repository.NoTX, src.ID, item.ID)
	if err != nil {
		return err
	}
	if acted {
		// Settled earlier but the mark never advanced (crash in between).
		// Finish the advance without touching the item again.
		uc.log.Debug().Str("source_id", src.ID).Int64("item_id", item.ID).Msg("item already boosted, advancing mark")
		return uc.sources.UpdateProgress(ctx, repository.NoTX, src.ID, item.ID)
	}

	if !item.AcceptedBy(src.AllowedKinds) {
		return uc.settleFiltered(ctx, src, item)
	}

	selected := selectEmojis(src.Boost.Emojis, src.Boost.ReactionCount)
	minDelay, maxDelay := src.Boost.DelayBounds()

	var added []string
	for i, emoji := range selected {
		attempts, rerr := runWithRetry(ctx, uc.sleep, func(ctx context.Context) error {
			return uc.actions.AddReaction(ctx, src.ChannelID, item.ID, emoji)
		})
		if rerr != nil {
			if domain.IsPermissionDenied(rerr) {
				return rerr
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			detail := errorDetail(rerr)
			detail["stage"] = "reaction"
			detail["emoji"] = emoji
			detail["attempts"] = attempts
			if aerr := uc.logs.Append(ctx, repository.NoTX, newLogEntry(src, item.ID, model.OutcomeFailed, detail)); aerr != nil {
				return aerr
			}
			uc.log.Warn().Err(rerr).
				Str("source_id", src.ID).
				Int64("item_id", item.ID).
				Str("emoji", emoji).
				Msg("reaction failed")
		} else {
			added = append(added, emoji)
			detail := map[string]any{"stage": "reaction", "emoji": emoji, "attempts": attempts}
			if aerr := uc.logs.Append(ctx, repository.NoTX, newLogEntry(src, item.ID, model.OutcomeSuccess, detail)); aerr != nil {
				return aerr
			}
		}
		if i < len(selected)-1 {
			if serr := uc.sleep(ctx, jitterBetween(minDelay, maxDelay)); serr != nil {
				return serr
			}
		}
	}

	if len(added) == 0 {
		return uc.settleFailed(ctx, src, item, len(selected))
	}
	return uc.settleBoosted(ctx, src, item, added, len(selected))
}

// settleBoosted records the ledger row and advances the mark in one
// transaction, so a crash can lose the advance but never the record.
func (uc *BoostUseCase) settleBoosted(ctx context.Context, src *model.SourceConfig, item model.Item, added []string, requested int) error {
	rec, err := model.NewBoostRecord(src.ID, src.ChannelID, item.ID, len(added), added)
	if err != nil {
		return err
	}
	detail := map[string]any{
		"stage":               "boost",
		"reactions_added":     len(added),
		"reactions_requested": requested,
		"emojis":              added,
	}
	entry := newLogEntry(src, item.ID, model.OutcomeSuccess, detail)

	err = uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if rerr := uc.ledger.Record(ctx, tx, rec); rerr != nil && !errors.Is(rerr, domain.ErrAlreadyExists) {
			return rerr
		}
		if aerr := uc.logs.Append(ctx, tx, entry); aerr != nil {
			return aerr
		}
		if serr := uc.stats.Apply(ctx, tx, src.ID, model.OutcomeSuccess, item.PrimaryKind(), entry.CreatedAt); serr != nil {
			return serr
		}
		return uc.sources.UpdateProgress(ctx, tx, src.ID, item.ID)
	})
	if err != nil {
		return err
	}

	uc.log.Info().
		Str("source_id", src.ID).
		Int64("channel_id", src.ChannelID).
		Int64("item_id", item.ID).
		Int("reactions", len(added)).
		Msg("item boosted")
	return nil
}

func (uc *BoostUseCase) settleFailed(ctx context.Context, src *model.SourceConfig, item model.Item, requested int) error {
	detail := map[string]any{
		"stage":               "boost",
		"reactions_added":     0,
		"reactions_requested": requested,
		"error":               "all reactions failed",
	}
	entry := newLogEntry(src, item.ID, model.OutcomeFailed, detail)

	err := uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if aerr := uc.logs.Append(ctx, tx, entry); aerr != nil {
			return aerr
		}
		if serr := uc.stats.Apply(ctx, tx, src.ID, model.OutcomeFailed, item.PrimaryKind(), entry.CreatedAt); serr != nil {
			return serr
		}
		return uc.sources.UpdateProgress(ctx, tx, src.ID, item.ID)
	})
	if err != nil {
		return err
	}

	uc.log.Warn().
		Str("source_id", src.ID).
		Int64("item_id", item.ID).
		Msg("boost failed for every selected emoji, item skipped")
	return nil
}

func (uc *BoostUseCase) settleFiltered(ctx context.Context, src *model.SourceConfig, item model.Item) error {
	detail := map[string]any{
		"stage":   "filter",
		"kinds":   item.Kinds(),
		"allowed": src.AllowedKinds,
	}
	entry := newLogEntry(src, item.ID, model.OutcomeFiltered, detail)

	return uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if aerr := uc.logs.Append(ctx, tx, entry); aerr != nil {
			return aerr
		}
		if serr := uc.stats.Apply(ctx, tx, src.ID, model.OutcomeFiltered, item.PrimaryKind(), entry.CreatedAt); serr != nil {
			return serr
		}
		return uc.sources.UpdateProgress(ctx, tx, src.ID, item.ID)
	})
}

// BoostedCount reports how many items the ledger holds for a source.
func (uc *BoostUseCase) BoostedCount(ctx context.Context, sourceID string) (int64, error) {
	return uc.ledger.CountBySource(ctx, repository.NoTX, sourceID)
}
