// File: internal/usecase/source_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/adapter"
	"telegram-channel-booster/internal/domain/ports/repository"
)

// Compile-time check
var _ SourceUseCase = (*sourceUC)(nil)

// SourceUseCase manages the registry of monitored sources.
type SourceUseCase interface {
	Add(ctx context.Context, params AddSourceParams) (*model.SourceConfig, error)
	Get(ctx context.Context, id string) (*model.SourceConfig, error)
	List(ctx context.Context) ([]*model.SourceConfig, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (*model.SourceConfig, error)
	Remove(ctx context.Context, id string) error
}

// AddSourceParams carries everything needed to register a source. Exactly one
// of Boost or Repost must be set, matching Action.
type AddSourceParams struct {
	ChannelID       int64
	ChannelTitle    string
	ChannelUsername string
	Action          model.SourceAction
	CheckInterval   time.Duration
	AllowedKinds    []model.ContentKind
	Boost           *model.BoostSettings
	Repost          *model.RepostSettings
}

type sourceUC struct {
	sources repository.SourceRepository
	stats   repository.SourceStatsRepository
	txm     repository.TransactionManager
	actions adapter.MessageActionClient
	log     *zerolog.Logger
}

func NewSourceUseCase(
	sources repository.SourceRepository,
	stats repository.SourceStatsRepository,
	txm repository.TransactionManager,
	actions adapter.MessageActionClient,
	logger *zerolog.Logger,
) *sourceUC {
	compLog := logger.With().Str("component", "SourceUC").Logger()
	return &sourceUC{sources: sources, stats: stats, txm: txm, actions: actions, log: &compLog}
}

// Add validates the configuration, verifies the bot's access to the channels
// involved, and persists the source together with its stats row.
func (uc *sourceUC) Add(ctx context.Context, params AddSourceParams) (*model.SourceConfig, error) {
	var (
		cfg *model.SourceConfig
		err error
	)
	switch params.Action {
	case model.ActionBoost:
		if params.Boost == nil {
			return nil, fmt.Errorf("%w: boost settings are required", domain.ErrInvalidArgument)
		}
		cfg, err = model.NewBoostSource("", params.ChannelID, params.ChannelTitle, params.ChannelUsername, *params.Boost)
	case model.ActionRepost:
		if params.Repost == nil {
			return nil, fmt.Errorf("%w: repost settings are required", domain.ErrInvalidArgument)
		}
		cfg, err = model.NewRepostSource("", params.ChannelID, params.ChannelTitle, params.ChannelUsername, *params.Repost)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidArgument, params.Action)
	}
	if err != nil {
		return nil, err
	}

	if params.CheckInterval > 0 {
		cfg.CheckInterval = params.CheckInterval
	}
	cfg.AllowedKinds = params.AllowedKinds
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Fast-path duplicate check; the unique index on channel_id stays
	// authoritative under races.
	existing, err := uc.sources.FindByChannelID(ctx, repository.NoTX, cfg.ChannelID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	if err := uc.actions.VerifyAccess(ctx, cfg.ChannelID); err != nil {
		return nil, err
	}
	if cfg.Action == model.ActionRepost {
		if err := uc.actions.VerifyAccess(ctx, cfg.Repost.TargetChannelID); err != nil {
			return nil, err
		}
	}

	err = uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if serr := uc.sources.Save(ctx, tx, cfg); serr != nil {
			return serr
		}
		return uc.stats.EnsureRow(ctx, tx, cfg.ID)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("source_id", cfg.ID).
		Int64("channel_id", cfg.ChannelID).
		Str("action", string(cfg.Action)).
		Msg("source registered")
	return cfg, nil
}

func (uc *sourceUC) Get(ctx context.Context, id string) (*model.SourceConfig, error) {
	return uc.sources.FindByID(ctx, repository.NoTX, id)
}

func (uc *sourceUC) List(ctx context.Context) ([]*model.SourceConfig, error) {
	return uc.sources.List(ctx, repository.NoTX)
}

// SetEnabled flips the operator toggle. Enabling clears a previous error
// state; disabling records the disabled status so it is distinguishable from
// a health shutdown.
func (uc *sourceUC) SetEnabled(ctx context.Context, id string, enabled bool) (*model.SourceConfig, error) {
	src, err := uc.sources.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if src.Enabled == enabled {
		return src, nil
	}

	if err := uc.sources.SetEnabled(ctx, repository.NoTX, id, enabled); err != nil {
		return nil, err
	}
	status := model.SourceStatusDisabled
	if enabled {
		status = model.SourceStatusActive
	}
	if err := uc.sources.UpdateStatus(ctx, repository.NoTX, id, status, nil); err != nil {
		return nil, err
	}

	src.Enabled = enabled
	src.Status = status
	src.LastError = nil
	uc.log.Info().Str("source_id", id).Bool("enabled", enabled).Msg("source toggled")
	return src, nil
}

// Remove deletes the configuration and its stats row. Operation logs and the
// boost ledger keep their entries: history outlives configuration.
func (uc *sourceUC) Remove(ctx context.Context, id string) error {
	if err := uc.sources.Delete(ctx, repository.NoTX, id); err != nil {
		return err
	}
	uc.log.Info().Str("source_id", id).Msg("source removed")
	return nil
}
