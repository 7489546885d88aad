package web

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/adapter"
	"telegram-channel-booster/internal/domain/ports/repository"
)

// --- Mock Repositories (Ports) ---

type memSourceRepo struct {
	repository.SourceRepository // Embed interface for forward compatibility
	mu                          sync.Mutex
	byID                        map[string]*model.SourceConfig
	ListError                   error // To simulate errors
	SaveError                   error
}

func newMemSourceRepo() *memSourceRepo {
	return &memSourceRepo{byID: map[string]*model.SourceConfig{}}
}

func (m *memSourceRepo) Save(ctx context.Context, tx repository.Tx, cfg *model.SourceConfig) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.ChannelID == cfg.ChannelID && existing.ID != cfg.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *cfg
	m.byID[cfg.ID] = &cp
	return nil
}

func (m *memSourceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SourceConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if src, ok := m.byID[id]; ok {
		cp := *src
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memSourceRepo) FindByChannelID(ctx context.Context, tx repository.Tx, channelID int64) (*model.SourceConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, src := range m.byID {
		if src.ChannelID == channelID {
			cp := *src
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSourceRepo) List(ctx context.Context, tx repository.Tx) ([]*model.SourceConfig, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.SourceConfig, 0, len(m.byID))
	for _, src := range m.byID {
		cp := *src
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memSourceRepo) SetEnabled(ctx context.Context, tx repository.Tx, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	src.Enabled = enabled
	return nil
}

func (m *memSourceRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.SourceStatus, lastError *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	src.Status = status
	src.LastError = lastError
	return nil
}

func (m *memSourceRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memStatsRepo struct {
	repository.SourceStatsRepository // Embed interface
	mu                               sync.Mutex
	rows                             map[string]*model.SourceStats
	GetError                         error
}

func newMemStatsRepo() *memStatsRepo {
	return &memStatsRepo{rows: map[string]*model.SourceStats{}}
}

func (m *memStatsRepo) EnsureRow(ctx context.Context, tx repository.Tx, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[sourceID]; !ok {
		m.rows[sourceID] = &model.SourceStats{
			SourceID:    sourceID,
			KindCounts:  map[string]int64{},
			PeriodStart: time.Now(),
		}
	}
	return nil
}

func (m *memStatsRepo) Get(ctx context.Context, tx repository.Tx, sourceID string) (*model.SourceStats, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.rows[sourceID]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memStatsRepo) GetAll(ctx context.Context, tx repository.Tx) ([]*model.SourceStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.SourceStats, 0, len(m.rows))
	for _, st := range m.rows {
		cp := *st
		out = append(out, &cp)
	}
	return out, nil
}

type memLogRepo struct {
	repository.OperationLogRepository // Embed interface
	mu                                sync.Mutex
	entries                           []*model.OperationLog
	lastLimit                         int
}

func (m *memLogRepo) Append(ctx context.Context, tx repository.Tx, entry *model.OperationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memLogRepo) ListBySource(ctx context.Context, tx repository.Tx, sourceID string, limit int) ([]*model.OperationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	var out []*model.OperationLog
	for _, e := range m.entries {
		if e.SourceID == sourceID && len(out) < limit {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memLogRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.OperationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	out := make([]*model.OperationLog, 0, len(m.entries))
	for _, e := range m.entries {
		if len(out) < limit {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memLedgerRepo struct {
	repository.BoostLedgerRepository // Embed interface
	count                            int64
}

func (m *memLedgerRepo) CountBySource(ctx context.Context, tx repository.Tx, sourceID string) (int64, error) {
	return m.count, nil
}

// --- Mock adapter and transaction manager ---

type stubActionClient struct {
	VerifyError error
}

func (s *stubActionClient) AddReaction(ctx context.Context, channelID, itemID int64, emoji string) error {
	return nil
}

func (s *stubActionClient) Relay(ctx context.Context, item model.Item, targetID int64, opts adapter.RelayOptions) (int64, error) {
	return item.ID, nil
}

func (s *stubActionClient) VerifyAccess(ctx context.Context, channelID int64) error {
	return s.VerifyError
}

func (s *stubActionClient) NotifyOperator(ctx context.Context, text string) error {
	return nil
}

type noTx struct{}

type mockTxManager struct{}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, noTx{})
}
