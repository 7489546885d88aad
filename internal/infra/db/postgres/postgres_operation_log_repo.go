package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/repository"
	"telegram-channel-booster/internal/infra/metrics"
)

var _ repository.OperationLogRepository = (*PostgresOperationLogRepo)(nil)

// PostgresOperationLogRepo is the append-only audit trail. Rows are never
// updated or deleted; source removal leaves history in place.
type PostgresOperationLogRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresOperationLogRepo(pool *pgxpool.Pool) *PostgresOperationLogRepo {
	return &PostgresOperationLogRepo{pool: pool}
}

const operationLogColumns = `id, source_id, channel_id, item_id, action, outcome, detail, created_at`

func (r *PostgresOperationLogRepo) Append(ctx context.Context, tx repository.Tx, entry *model.OperationLog) error {
	var detailRaw []byte
	if entry.Detail != nil {
		var err error
		detailRaw, err = json.Marshal(entry.Detail)
		if err != nil {
			return fmt.Errorf("marshal detail: %w", err)
		}
	}
	const q = `
INSERT INTO operation_logs (id, source_id, channel_id, item_id, action, outcome, detail, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		entry.ID, entry.SourceID, entry.ChannelID, entry.ItemID,
		string(entry.Action), string(entry.Outcome), detailRaw, entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	if entry.ItemID != 0 {
		// Item-level entries are written exactly once per settled item, so
		// counting them here needs no bookkeeping upstream.
		metrics.IncItemProcessed(string(entry.Action), string(entry.Outcome))
	}
	return nil
}

func (r *PostgresOperationLogRepo) ListBySource(ctx context.Context, tx repository.Tx, sourceID string, limit int) ([]*model.OperationLog, error) {
	const q = `SELECT ` + operationLogColumns + `
  FROM operation_logs WHERE source_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, sourceID, limit)
	if err != nil {
		return nil, err
	}
	return collectLogs(rows)
}

func (r *PostgresOperationLogRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.OperationLog, error) {
	const q = `SELECT ` + operationLogColumns + `
  FROM operation_logs ORDER BY created_at DESC, id DESC LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	return collectLogs(rows)
}

func collectLogs(rows pgx.Rows) ([]*model.OperationLog, error) {
	defer rows.Close()
	var out []*model.OperationLog
	for rows.Next() {
		var (
			entry           model.OperationLog
			action, outcome string
			detailRaw       []byte
		)
		err := rows.Scan(&entry.ID, &entry.SourceID, &entry.ChannelID, &entry.ItemID,
			&action, &outcome, &detailRaw, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		entry.Action = model.SourceAction(action)
		entry.Outcome = model.Outcome(outcome)
		if len(detailRaw) > 0 {
			if err := json.Unmarshal(detailRaw, &entry.Detail); err != nil {
				return nil, fmt.Errorf("%w: detail: %v", domain.ErrReadDatabaseRow, err)
			}
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}
