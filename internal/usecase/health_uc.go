// File: internal/usecase/health_uc.go
package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/adapter"
	"telegram-channel-booster/internal/domain/ports/repository"
)

// Compile-time check
var _ HealthUseCase = (*healthUC)(nil)

// HealthUseCase owns the permission lifecycle of sources: disabling them when
// the bot loses its rights and re-enabling them once access is restored.
type HealthUseCase interface {
	MarkPermissionError(ctx context.Context, src *model.SourceConfig, cause error) error
	RecheckAndReenable(ctx context.Context, sourceID string) (bool, error)
}

type healthUC struct {
	sources repository.SourceRepository
	actions adapter.MessageActionClient
	log     *zerolog.Logger
}

func NewHealthUseCase(sources repository.SourceRepository, actions adapter.MessageActionClient, logger *zerolog.Logger) *healthUC {
	compLog := logger.With().Str("component", "HealthUC").Logger()
	return &healthUC{sources: sources, actions: actions, log: &compLog}
}

// MarkPermissionError flips the source to the error state and disables it.
// A source already disabled with an error is left untouched, so repeated
// failures never stack state changes or duplicate operator alerts.
func (uc *healthUC) MarkPermissionError(ctx context.Context, src *model.SourceConfig, cause error) error {
	if src.Status == model.SourceStatusError && !src.Enabled {
		return nil
	}

	msg := cause.Error()
	if err := uc.sources.UpdateStatus(ctx, repository.NoTX, src.ID, model.SourceStatusError, &msg); err != nil {
		return err
	}
	if err := uc.sources.SetEnabled(ctx, repository.NoTX, src.ID, false); err != nil {
		return err
	}
	src.Status = model.SourceStatusError
	src.Enabled = false
	src.LastError = &msg

	uc.log.Warn().
		Str("source_id", src.ID).
		Int64("channel_id", src.ChannelID).
		Str("error", msg).
		Msg("source disabled after permission error")

	text := fmt.Sprintf("⚠️ Source %q (%d) was disabled: %s", src.ChannelTitle, src.ChannelID, msg)
	if err := uc.actions.NotifyOperator(ctx, text); err != nil {
		uc.log.Warn().Err(err).Str("source_id", src.ID).Msg("operator notification failed")
	}
	return nil
}

// RecheckAndReenable re-verifies the bot's access to the source channel (and
// the target channel for reposts) and re-activates the source on success.
// It reports whether the source ended up enabled.
func (uc *healthUC) RecheckAndReenable(ctx context.Context, sourceID string) (bool, error) {
	src, err := uc.sources.FindByID(ctx, repository.NoTX, sourceID)
	if err != nil {
		return false, err
	}

	if err := uc.actions.VerifyAccess(ctx, src.ChannelID); err != nil {
		if _, ok := domain.AsTelegramError(err); ok {
			uc.log.Info().Err(err).
				Str("source_id", src.ID).
				Int64("channel_id", src.ChannelID).
				Msg("source channel still inaccessible")
			return false, nil
		}
		return false, err
	}
	if src.Action == model.ActionRepost && src.Repost != nil {
		if err := uc.actions.VerifyAccess(ctx, src.Repost.TargetChannelID); err != nil {
			if _, ok := domain.AsTelegramError(err); ok {
				uc.log.Info().Err(err).
					Str("source_id", src.ID).
					Int64("target_channel_id", src.Repost.TargetChannelID).
					Msg("target channel still inaccessible")
				return false, nil
			}
			return false, err
		}
	}

	if err := uc.sources.UpdateStatus(ctx, repository.NoTX, src.ID, model.SourceStatusActive, nil); err != nil {
		return false, err
	}
	if err := uc.sources.SetEnabled(ctx, repository.NoTX, src.ID, true); err != nil {
		return false, err
	}

	uc.log.Info().
		Str("source_id", src.ID).
		Int64("channel_id", src.ChannelID).
		Msg("source re-enabled after access recheck")
	return true, nil
}
