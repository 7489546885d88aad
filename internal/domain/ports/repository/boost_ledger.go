package repository

import (
	"context"

	"telegram-channel-booster/internal/domain/model"
)

// BoostLedgerRepository persists the per-item boost ledger. Record returns
// domain.ErrAlreadyExists when the (source, item) pair is already settled.
type BoostLedgerRepository interface {
	Record(ctx context.Context, tx Tx, rec *model.BoostRecord) error
	Exists(ctx context.Context, tx Tx, sourceID string, itemID int64) (bool, error)
	CountBySource(ctx context.Context, tx Tx, sourceID string) (int64, error)
}
