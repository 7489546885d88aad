package repository

import (
	"context"
	"time"

	"telegram-channel-booster/internal/domain/model"
)

// SourceStatsRepository maintains per-source aggregate counters. Apply is an
// atomic increment keyed by outcome and content kind.
type SourceStatsRepository interface {
	EnsureRow(ctx context.Context, tx Tx, sourceID string) error
	Apply(ctx context.Context, tx Tx, sourceID string, outcome model.Outcome, kind model.ContentKind, at time.Time) error
	Get(ctx context.Context, tx Tx, sourceID string) (*model.SourceStats, error)
	GetAll(ctx context.Context, tx Tx) ([]*model.SourceStats, error)
}
