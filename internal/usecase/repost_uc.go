// File: internal/usecase/repost_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/adapter"
	"telegram-channel-booster/internal/domain/ports/repository"
)

// Compile-time check
var _ itemProcessor = (*RepostUseCase)(nil)

// RepostUseCase relays fetched items to the source's target channel. The
// relay is at-least-once: a crash after sending but before the mark advanced
// re-sends the item on the next cycle.
type RepostUseCase struct {
	sources repository.SourceRepository
	logs    repository.OperationLogRepository
	stats   repository.SourceStatsRepository
	txm     repository.TransactionManager
	actions adapter.MessageActionClient
	log     *zerolog.Logger

	sleep sleepFunc
}

func NewRepostUseCase(
	sources repository.SourceRepository,
	logs repository.OperationLogRepository,
	stats repository.SourceStatsRepository,
	txm repository.TransactionManager,
	actions adapter.MessageActionClient,
	logger *zerolog.Logger,
) *RepostUseCase {
	compLog := logger.With().Str("component", "RepostUC").Logger()
	return &RepostUseCase{
		sources: sources,
		logs:    logs,
		stats:   stats,
		txm:     txm,
		actions: actions,
		log:     &compLog,
		sleep:   ctxSleep,
	}
}

func (uc *RepostUseCase) ProcessItem(ctx context.Context, src *model.SourceConfig, item model.Item) error {
	if src.Repost == nil {
		return domain.ErrInvalidArgument
	}

	if !item.AcceptedBy(src.AllowedKinds) {
		detail := map[string]any{
			"stage":   "filter",
			"kinds":   item.Kinds(),
			"allowed": src.AllowedKinds,
		}
		return uc.settle(ctx, src, item, newLogEntry(src, item.ID, model.OutcomeFiltered, detail))
	}

	if d := src.Repost.RepostDelaySec; d > 0 {
		if err := uc.sleep(ctx, time.Duration(d)*time.Second); err != nil {
			return err
		}
	}

	opts := adapter.RelayOptions{
		Watermark:  src.Repost.Watermark,
		DropAuthor: src.Repost.DropAuthor,
	}
	var relayedID int64
	attempts, err := runWithRetry(ctx, uc.sleep, func(ctx context.Context) error {
		id, rerr := uc.actions.Relay(ctx, item, src.Repost.TargetChannelID, opts)
		if rerr == nil {
			relayedID = id
		}
		return rerr
	})
	if err != nil {
		if domain.IsPermissionDenied(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := errorDetail(err)
		detail["stage"] = "repost"
		detail["target_channel_id"] = src.Repost.TargetChannelID
		detail["attempts"] = attempts
		uc.log.Warn().Err(err).
			Str("source_id", src.ID).
			Int64("item_id", item.ID).
			Int("attempts", attempts).
			Msg("repost failed, item skipped")
		return uc.settle(ctx, src, item, newLogEntry(src, item.ID, model.OutcomeFailed, detail))
	}

	detail := map[string]any{
		"stage":              "repost",
		"target_channel_id":  src.Repost.TargetChannelID,
		"relayed_message_id": relayedID,
		"attempts":           attempts,
	}
	if err := uc.settle(ctx, src, item, newLogEntry(src, item.ID, model.OutcomeSuccess, detail)); err != nil {
		return err
	}

	uc.log.Info().
		Str("source_id", src.ID).
		Int64("channel_id", src.ChannelID).
		Int64("item_id", item.ID).
		Int64("target_channel_id", src.Repost.TargetChannelID).
		Int64("relayed_message_id", relayedID).
		Msg("item reposted")
	return nil
}

// settle writes the item's outcome and advances the mark in one transaction.
func (uc *RepostUseCase) settle(ctx context.Context, src *model.SourceConfig, item model.Item, entry *model.OperationLog) error {
	return uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if aerr := uc.logs.Append(ctx, tx, entry); aerr != nil {
			return aerr
		}
		if serr := uc.stats.Apply(ctx, tx, src.ID, entry.Outcome, item.PrimaryKind(), entry.CreatedAt); serr != nil {
			return serr
		}
		return uc.sources.UpdateProgress(ctx, tx, src.ID, item.ID)
	})
}
