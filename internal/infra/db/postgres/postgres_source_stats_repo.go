package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/repository"
)

var _ repository.SourceStatsRepository = (*PostgresSourceStatsRepo)(nil)

// PostgresSourceStatsRepo keeps one aggregate row per source, folded in place
// by Apply so concurrent settles never lose counts.
type PostgresSourceStatsRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSourceStatsRepo(pool *pgxpool.Pool) *PostgresSourceStatsRepo {
	return &PostgresSourceStatsRepo{pool: pool}
}

func (r *PostgresSourceStatsRepo) EnsureRow(ctx context.Context, tx repository.Tx, sourceID string) error {
	const q = `
INSERT INTO source_stats (source_id, period_start)
VALUES ($1, NOW()) ON CONFLICT (source_id) DO NOTHING;
`
	_, err := execSQL(ctx, r.pool, tx, q, sourceID)
	return err
}

// Apply folds one outcome into the aggregate row. The outcome buckets mirror
// model.SourceStats.ApplyOutcome: success and filtered count their own
// columns, everything else counts as failed.
func (r *PostgresSourceStatsRepo) Apply(ctx context.Context, tx repository.Tx, sourceID string, outcome model.Outcome, kind model.ContentKind, at time.Time) error {
	const q = `
INSERT INTO source_stats (
  source_id, total_items, successful, failed, filtered, kind_counts, last_action_at, period_start
) VALUES (
  $1, 1,
  CASE WHEN $2 = 'success' THEN 1 ELSE 0 END,
  CASE WHEN $2 NOT IN ('success','filtered') THEN 1 ELSE 0 END,
  CASE WHEN $2 = 'filtered' THEN 1 ELSE 0 END,
  jsonb_build_object($3::text, 1),
  CASE WHEN $2 = 'success' THEN $4::timestamptz ELSE NULL END,
  NOW()
) ON CONFLICT (source_id) DO UPDATE SET
  total_items = source_stats.total_items + 1,
  successful  = source_stats.successful + CASE WHEN $2 = 'success' THEN 1 ELSE 0 END,
  failed      = source_stats.failed + CASE WHEN $2 NOT IN ('success','filtered') THEN 1 ELSE 0 END,
  filtered    = source_stats.filtered + CASE WHEN $2 = 'filtered' THEN 1 ELSE 0 END,
  kind_counts = jsonb_set(
    source_stats.kind_counts,
    ARRAY[$3::text],
    to_jsonb(COALESCE((source_stats.kind_counts->>$3::text)::bigint, 0) + 1)
  ),
  last_action_at = CASE WHEN $2 = 'success' THEN $4::timestamptz ELSE source_stats.last_action_at END;
`
	_, err := execSQL(ctx, r.pool, tx, q, sourceID, string(outcome), string(kind), at)
	return err
}

const sourceStatsColumns = `source_id, total_items, successful, failed, filtered, kind_counts, last_action_at, period_start`

func (r *PostgresSourceStatsRepo) Get(ctx context.Context, tx repository.Tx, sourceID string) (*model.SourceStats, error) {
	const q = `SELECT ` + sourceStatsColumns + ` FROM source_stats WHERE source_id=$1;`
	return scanSourceStats(pickRow(ctx, r.pool, tx, q, sourceID))
}

func (r *PostgresSourceStatsRepo) GetAll(ctx context.Context, tx repository.Tx) ([]*model.SourceStats, error) {
	const q = `SELECT ` + sourceStatsColumns + ` FROM source_stats ORDER BY source_id;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.SourceStats
	for rows.Next() {
		s, err := scanSourceStats(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSourceStats(row pgx.Row) (*model.SourceStats, error) {
	var (
		s        model.SourceStats
		kindsRaw []byte
	)
	err := row.Scan(&s.SourceID, &s.Total, &s.Successful, &s.Failed, &s.Filtered,
		&kindsRaw, &s.LastActionAt, &s.PeriodStart)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if len(kindsRaw) > 0 {
		if err := json.Unmarshal(kindsRaw, &s.KindCounts); err != nil {
			return nil, fmt.Errorf("%w: kind counts: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	return &s, nil
}
