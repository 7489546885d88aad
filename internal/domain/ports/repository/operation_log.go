package repository

import (
	"context"

	"telegram-channel-booster/internal/domain/model"
)

// OperationLogRepository persists the append-only action audit trail.
type OperationLogRepository interface {
	Append(ctx context.Context, tx Tx, entry *model.OperationLog) error
	ListBySource(ctx context.Context, tx Tx, sourceID string, limit int) ([]*model.OperationLog, error)
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.OperationLog, error)
}
