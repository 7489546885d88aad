package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/repository"
)

var _ repository.BoostLedgerRepository = (*PostgresBoostLedgerRepo)(nil)

// PostgresBoostLedgerRepo persists the per-item boost ledger. The primary key
// on (source_id, item_id) is the duplicate guard.
type PostgresBoostLedgerRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresBoostLedgerRepo(pool *pgxpool.Pool) *PostgresBoostLedgerRepo {
	return &PostgresBoostLedgerRepo{pool: pool}
}

func (r *PostgresBoostLedgerRepo) Record(ctx context.Context, tx repository.Tx, rec *model.BoostRecord) error {
	emojis, err := json.Marshal(rec.EmojisUsed)
	if err != nil {
		return fmt.Errorf("marshal emojis: %w", err)
	}
	const q = `
INSERT INTO boost_records (source_id, channel_id, item_id, reactions, emojis_used, boosted_at)
VALUES ($1,$2,$3,$4,$5,$6);
`
	_, err = execSQL(ctx, r.pool, tx, q, rec.SourceID, rec.ChannelID, rec.ItemID, rec.Reactions, emojis, rec.BoostedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PostgresBoostLedgerRepo) Exists(ctx context.Context, tx repository.Tx, sourceID string, itemID int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM boost_records WHERE source_id=$1 AND item_id=$2);`
	var exists bool
	if err := pickRow(ctx, r.pool, tx, q, sourceID, itemID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresBoostLedgerRepo) CountBySource(ctx context.Context, tx repository.Tx, sourceID string) (int64, error) {
	var n int64
	if err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM boost_records WHERE source_id=$1;`, sourceID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count boosts: %w", err)
	}
	return n, nil
}
