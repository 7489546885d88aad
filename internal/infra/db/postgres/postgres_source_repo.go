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

var _ repository.SourceRepository = (*PostgresSourceRepo)(nil)

type PostgresSourceRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSourceRepo(pool *pgxpool.Pool) *PostgresSourceRepo {
	return &PostgresSourceRepo{pool: pool}
}

const sourceColumns = `
  id, channel_id, channel_title, channel_username, action, enabled, status,
  check_interval_seconds, last_processed_id, boost_settings, repost_settings,
  allowed_kinds, last_error, last_checked_at, created_at, updated_at`

func (r *PostgresSourceRepo) Save(ctx context.Context, tx repository.Tx, cfg *model.SourceConfig) error {
	boostRaw, repostRaw, kindsRaw, err := marshalSourceSettings(cfg)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO source_configs (
  id, channel_id, channel_title, channel_username, action, enabled, status,
  check_interval_seconds, last_processed_id, boost_settings, repost_settings,
  allowed_kinds, last_error, last_checked_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,NOW()
) ON CONFLICT (id) DO UPDATE SET
  channel_title=$3, channel_username=$4, action=$5, enabled=$6, status=$7,
  check_interval_seconds=$8, boost_settings=$10, repost_settings=$11,
  allowed_kinds=$12, updated_at=NOW();
`
	_, err = execSQL(ctx, r.pool, tx, q,
		cfg.ID, cfg.ChannelID, cfg.ChannelTitle, cfg.ChannelUsername,
		string(cfg.Action), cfg.Enabled, string(cfg.Status),
		int(cfg.CheckInterval.Seconds()), cfg.LastProcessedID,
		boostRaw, repostRaw, kindsRaw, cfg.LastError, cfg.LastCheckedAt, cfg.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PostgresSourceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SourceConfig, error) {
	const q = `SELECT` + sourceColumns + ` FROM source_configs WHERE id=$1;`
	return scanSource(pickRow(ctx, r.pool, tx, q, id))
}

func (r *PostgresSourceRepo) FindByChannelID(ctx context.Context, tx repository.Tx, channelID int64) (*model.SourceConfig, error) {
	const q = `SELECT` + sourceColumns + ` FROM source_configs WHERE channel_id=$1;`
	return scanSource(pickRow(ctx, r.pool, tx, q, channelID))
}

func (r *PostgresSourceRepo) List(ctx context.Context, tx repository.Tx) ([]*model.SourceConfig, error) {
	const q = `SELECT` + sourceColumns + ` FROM source_configs ORDER BY created_at;`
	return r.queryList(ctx, tx, q)
}

func (r *PostgresSourceRepo) ListEnabled(ctx context.Context, tx repository.Tx) ([]*model.SourceConfig, error) {
	const q = `SELECT` + sourceColumns + ` FROM source_configs WHERE enabled ORDER BY created_at;`
	return r.queryList(ctx, tx, q)
}

func (r *PostgresSourceRepo) queryList(ctx context.Context, tx repository.Tx, q string) ([]*model.SourceConfig, error) {
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.SourceConfig
	for rows.Next() {
		cfg, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// UpdateProgress advances the high-water-mark. An item id at or below the
// current mark leaves the row untouched.
func (r *PostgresSourceRepo) UpdateProgress(ctx context.Context, tx repository.Tx, id string, itemID int64) error {
	const q = `UPDATE source_configs SET last_processed_id=$2 WHERE id=$1 AND last_processed_id < $2;`
	_, err := execSQL(ctx, r.pool, tx, q, id, itemID)
	return err
}

func (r *PostgresSourceRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.SourceStatus, lastError *string) error {
	const q = `UPDATE source_configs SET status=$2, last_error=$3, updated_at=NOW() WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, string(status), lastError)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresSourceRepo) SetEnabled(ctx context.Context, tx repository.Tx, id string, enabled bool) error {
	const q = `UPDATE source_configs SET enabled=$2, updated_at=NOW() WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresSourceRepo) TouchLastChecked(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE source_configs SET last_checked_at=$2 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresSourceRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM source_configs WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func marshalSourceSettings(cfg *model.SourceConfig) (boost, repost, kinds []byte, err error) {
	if cfg.Boost != nil {
		boost, err = json.Marshal(cfg.Boost)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal boost settings: %w", err)
		}
	}
	if cfg.Repost != nil {
		repost, err = json.Marshal(cfg.Repost)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal repost settings: %w", err)
		}
	}
	allowed := cfg.AllowedKinds
	if allowed == nil {
		allowed = []model.ContentKind{}
	}
	kinds, err = json.Marshal(allowed)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal allowed kinds: %w", err)
	}
	return boost, repost, kinds, nil
}

func scanSource(row pgx.Row) (*model.SourceConfig, error) {
	var (
		cfg              model.SourceConfig
		action, status   string
		intervalSeconds  int
		boostRaw         []byte
		repostRaw        []byte
		kindsRaw         []byte
	)
	err := row.Scan(
		&cfg.ID, &cfg.ChannelID, &cfg.ChannelTitle, &cfg.ChannelUsername,
		&action, &cfg.Enabled, &status, &intervalSeconds, &cfg.LastProcessedID,
		&boostRaw, &repostRaw, &kindsRaw, &cfg.LastError, &cfg.LastCheckedAt,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	cfg.Action = model.SourceAction(action)
	cfg.Status = model.SourceStatus(status)
	cfg.CheckInterval = time.Duration(intervalSeconds) * time.Second
	if len(boostRaw) > 0 {
		var b model.BoostSettings
		if err := json.Unmarshal(boostRaw, &b); err != nil {
			return nil, fmt.Errorf("%w: boost settings: %v", domain.ErrReadDatabaseRow, err)
		}
		cfg.Boost = &b
	}
	if len(repostRaw) > 0 {
		var rp model.RepostSettings
		if err := json.Unmarshal(repostRaw, &rp); err != nil {
			return nil, fmt.Errorf("%w: repost settings: %v", domain.ErrReadDatabaseRow, err)
		}
		cfg.Repost = &rp
	}
	if len(kindsRaw) > 0 {
		if err := json.Unmarshal(kindsRaw, &cfg.AllowedKinds); err != nil {
			return nil, fmt.Errorf("%w: allowed kinds: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	return &cfg, nil
}
