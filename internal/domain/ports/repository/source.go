package repository

import (
	"context"
	"time"

	"telegram-channel-booster/internal/domain/model"
)

// SourceRepository persists source configurations.
//
// UpdateProgress is monotonic: an itemID at or below the stored
// high-water-mark leaves the row untouched, so replayed advances are
// harmless.
type SourceRepository interface {
	Save(ctx context.Context, tx Tx, cfg *model.SourceConfig) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SourceConfig, error)
	FindByChannelID(ctx context.Context, tx Tx, channelID int64) (*model.SourceConfig, error)
	List(ctx context.Context, tx Tx) ([]*model.SourceConfig, error)
	ListEnabled(ctx context.Context, tx Tx) ([]*model.SourceConfig, error)
	UpdateProgress(ctx context.Context, tx Tx, id string, itemID int64) error
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.SourceStatus, lastError *string) error
	SetEnabled(ctx context.Context, tx Tx, id string, enabled bool) error
	TouchLastChecked(ctx context.Context, tx Tx, id string, at time.Time) error
	Delete(ctx context.Context, tx Tx, id string) error
}
