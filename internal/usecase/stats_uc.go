package usecase

import (
	"context"

	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	ForSource(ctx context.Context, sourceID string) (*model.SourceStats, error)
	All(ctx context.Context) ([]*model.SourceStats, error)
	RecentLogs(ctx context.Context, sourceID string, limit int) ([]*model.OperationLog, error)
	BoostedCount(ctx context.Context, sourceID string) (int64, error)
}

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

type statsUC struct {
	stats  repository.SourceStatsRepository
	logs   repository.OperationLogRepository
	ledger repository.BoostLedgerRepository

	log *zerolog.Logger
}

func NewStatsUseCase(stats repository.SourceStatsRepository, logs repository.OperationLogRepository, ledger repository.BoostLedgerRepository, logger *zerolog.Logger) *statsUC {
	compLog := logger.With().Str("component", "StatsUC").Logger()
	return &statsUC{stats: stats, logs: logs, ledger: ledger, log: &compLog}
}

func (s *statsUC) ForSource(ctx context.Context, sourceID string) (*model.SourceStats, error) {
	return s.stats.Get(ctx, repository.NoTX, sourceID)
}

func (s *statsUC) All(ctx context.Context) ([]*model.SourceStats, error) {
	return s.stats.GetAll(ctx, repository.NoTX)
}

func (s *statsUC) RecentLogs(ctx context.Context, sourceID string, limit int) ([]*model.OperationLog, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	if sourceID == "" {
		return s.logs.ListRecent(ctx, repository.NoTX, limit)
	}
	return s.logs.ListBySource(ctx, repository.NoTX, sourceID, limit)
}

func (s *statsUC) BoostedCount(ctx context.Context, sourceID string) (int64, error) {
	return s.ledger.CountBySource(ctx, repository.NoTX, sourceID)
}
