// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/adapter"
	"telegram-channel-booster/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// memSourceRepo is a small in-memory implementation used by unit tests.
type memSourceRepo struct {
	mu    sync.RWMutex
	store map[string]*model.SourceConfig

	progressCalls []int64 // item ids passed to UpdateProgress, in order
	statusCalls   []model.SourceStatus

	saveErr     error
	listErr     error
	progressErr error
}

func newMemSourceRepo() *memSourceRepo {
	return &memSourceRepo{store: make(map[string]*model.SourceConfig)}
}

func (m *memSourceRepo) Save(ctx context.Context, tx repository.Tx, cfg *model.SourceConfig) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.ChannelID == cfg.ChannelID && s.ID != cfg.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *cfg
	m.store[cfg.ID] = &cp
	return nil
}

func (m *memSourceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SourceConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSourceRepo) FindByChannelID(ctx context.Context, tx repository.Tx, channelID int64) (*model.SourceConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.ChannelID == channelID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSourceRepo) List(ctx context.Context, tx repository.Tx) ([]*model.SourceConfig, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.SourceConfig, 0, len(m.store))
	for _, s := range m.store {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memSourceRepo) ListEnabled(ctx context.Context, tx repository.Tx) ([]*model.SourceConfig, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.SourceConfig
	for _, s := range m.store {
		if s.Enabled {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSourceRepo) UpdateProgress(ctx context.Context, tx repository.Tx, id string, itemID int64) error {
	if m.progressErr != nil {
		return m.progressErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.progressCalls = append(m.progressCalls, itemID)
	if itemID > s.LastProcessedID {
		s.LastProcessedID = itemID
	}
	return nil
}

func (m *memSourceRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.SourceStatus, lastError *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.statusCalls = append(m.statusCalls, status)
	s.Status = status
	s.LastError = lastError
	return nil
}

func (m *memSourceRepo) SetEnabled(ctx context.Context, tx repository.Tx, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Enabled = enabled
	return nil
}

func (m *memSourceRepo) TouchLastChecked(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.LastCheckedAt = &at
	return nil
}

func (m *memSourceRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *memSourceRepo) get(id string) *model.SourceConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store[id]
}

// memLedgerRepo keeps boost records keyed by (source, item).
type memLedgerRepo struct {
	mu      sync.RWMutex
	records map[string]map[int64]*model.BoostRecord

	existsErr error
	recordErr error
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{records: make(map[string]map[int64]*model.BoostRecord)}
}

func (m *memLedgerRepo) Record(ctx context.Context, tx repository.Tx, rec *model.BoostRecord) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byItem, ok := m.records[rec.SourceID]
	if !ok {
		byItem = make(map[int64]*model.BoostRecord)
		m.records[rec.SourceID] = byItem
	}
	if _, dup := byItem[rec.ItemID]; dup {
		return domain.ErrAlreadyExists
	}
	cp := *rec
	byItem[rec.ItemID] = &cp
	return nil
}

func (m *memLedgerRepo) Exists(ctx context.Context, tx repository.Tx, sourceID string, itemID int64) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[sourceID][itemID]
	return ok, nil
}

func (m *memLedgerRepo) CountBySource(ctx context.Context, tx repository.Tx, sourceID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records[sourceID])), nil
}

// memLogRepo collects audit entries in append order.
type memLogRepo struct {
	mu      sync.RWMutex
	entries []*model.OperationLog

	appendErr error
}

func newMemLogRepo() *memLogRepo { return &memLogRepo{} }

func (m *memLogRepo) Append(ctx context.Context, tx repository.Tx, entry *model.OperationLog) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memLogRepo) ListBySource(ctx context.Context, tx repository.Tx, sourceID string, limit int) ([]*model.OperationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.OperationLog
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].SourceID == sourceID {
			cp := *m.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memLogRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.OperationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.OperationLog
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.entries[i]
		out = append(out, &cp)
	}
	return out, nil
}

// byOutcome filters collected entries, sub-entries included.
func (m *memLogRepo) byOutcome(outcome model.Outcome) []*model.OperationLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.OperationLog
	for _, e := range m.entries {
		if e.Outcome == outcome {
			out = append(out, e)
		}
	}
	return out
}

// itemEntries returns only item-terminal entries (stage boost/repost/filter).
func (m *memLogRepo) itemEntries() []*model.OperationLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.OperationLog
	for _, e := range m.entries {
		stage, _ := e.Detail["stage"].(string)
		if stage == "boost" || stage == "repost" || stage == "filter" {
			out = append(out, e)
		}
	}
	return out
}

// memStatsRepo folds applied outcomes into in-memory counters.
type memStatsRepo struct {
	mu    sync.RWMutex
	stats map[string]*model.SourceStats

	applyErr error
}

func newMemStatsRepo() *memStatsRepo {
	return &memStatsRepo{stats: make(map[string]*model.SourceStats)}
}

func (m *memStatsRepo) EnsureRow(ctx context.Context, tx repository.Tx, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stats[sourceID]; !ok {
		m.stats[sourceID] = &model.SourceStats{SourceID: sourceID, PeriodStart: time.Now()}
	}
	return nil
}

func (m *memStatsRepo) Apply(ctx context.Context, tx repository.Tx, sourceID string, outcome model.Outcome, kind model.ContentKind, at time.Time) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[sourceID]
	if !ok {
		s = &model.SourceStats{SourceID: sourceID, PeriodStart: at}
		m.stats[sourceID] = s
	}
	s.ApplyOutcome(outcome, kind, at)
	return nil
}

func (m *memStatsRepo) Get(ctx context.Context, tx repository.Tx, sourceID string) (*model.SourceStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[sourceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStatsRepo) GetAll(ctx context.Context, tx repository.Tx) ([]*model.SourceStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.SourceStats, 0, len(m.stats))
	for _, s := range m.stats {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

// mockTxManager runs the function immediately with NoTX. Assign WithTxFunc to
// verify transactional behavior.
type mockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func (m *mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// reactionCall records one AddReaction invocation.
type reactionCall struct {
	channelID int64
	itemID    int64
	emoji     string
}

// relayCall records one Relay invocation.
type relayCall struct {
	item     model.Item
	targetID int64
	opts     adapter.RelayOptions
}

// mockActionClient implements adapter.MessageActionClient with hooks.
type mockActionClient struct {
	mu            sync.Mutex
	reactions     []reactionCall
	relays        []relayCall
	notifications []string

	AddReactionFunc  func(ctx context.Context, channelID, itemID int64, emoji string) error
	RelayFunc        func(ctx context.Context, item model.Item, targetID int64, opts adapter.RelayOptions) (int64, error)
	VerifyAccessFunc func(ctx context.Context, channelID int64) error
}

func (m *mockActionClient) AddReaction(ctx context.Context, channelID, itemID int64, emoji string) error {
	m.mu.Lock()
	m.reactions = append(m.reactions, reactionCall{channelID, itemID, emoji})
	m.mu.Unlock()
	if m.AddReactionFunc != nil {
		return m.AddReactionFunc(ctx, channelID, itemID, emoji)
	}
	return nil
}

func (m *mockActionClient) Relay(ctx context.Context, item model.Item, targetID int64, opts adapter.RelayOptions) (int64, error) {
	m.mu.Lock()
	m.relays = append(m.relays, relayCall{item, targetID, opts})
	m.mu.Unlock()
	if m.RelayFunc != nil {
		return m.RelayFunc(ctx, item, targetID, opts)
	}
	return item.ID + 1000, nil
}

func (m *mockActionClient) VerifyAccess(ctx context.Context, channelID int64) error {
	if m.VerifyAccessFunc != nil {
		return m.VerifyAccessFunc(ctx, channelID)
	}
	return nil
}

func (m *mockActionClient) NotifyOperator(ctx context.Context, text string) error {
	m.mu.Lock()
	m.notifications = append(m.notifications, text)
	m.mu.Unlock()
	return nil
}

func (m *mockActionClient) reactionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reactions)
}

// mockFetcher implements adapter.MessageSourceClient.
type mockFetcher struct {
	mu    sync.Mutex
	calls []int64 // afterID per call

	FetchFunc func(ctx context.Context, channelID, afterID int64, limit int) ([]model.Item, error)
}

func (m *mockFetcher) FetchItemsAfter(ctx context.Context, channelID, afterID int64, limit int) ([]model.Item, error) {
	m.mu.Lock()
	m.calls = append(m.calls, afterID)
	m.mu.Unlock()
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, channelID, afterID, limit)
	}
	return nil, nil
}

// memGuard is an in-process cycle guard; set held[sourceID] to simulate a
// cycle owned elsewhere.
type memGuard struct {
	mu       sync.Mutex
	held     map[string]bool
	acquires int
}

func newMemGuard() *memGuard { return &memGuard{held: make(map[string]bool)} }

func (g *memGuard) Acquire(ctx context.Context, sourceID string, ttl time.Duration) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[sourceID] {
		return "", domain.ErrCycleInFlight
	}
	g.held[sourceID] = true
	g.acquires++
	return "token-" + sourceID, nil
}

func (g *memGuard) Release(ctx context.Context, sourceID, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held[sourceID] = false
	return nil
}

// memProgressCache records Set calls keyed by channel.
type memProgressCache struct {
	mu    sync.Mutex
	marks map[int64]int64
}

func newMemProgressCache() *memProgressCache { return &memProgressCache{marks: make(map[int64]int64)} }

func (c *memProgressCache) Get(ctx context.Context, channelID int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.marks[channelID]
	return v, ok
}

func (c *memProgressCache) Set(ctx context.Context, channelID int64, itemID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marks[channelID] = itemID
}

// sleepRecorder replaces the context-aware sleep in unit tests and records
// every requested pause without actually sleeping.
type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
	err   error
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.slept = append(s.slept, d)
	return nil
}

func (s *sleepRecorder) durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.slept))
	copy(out, s.slept)
	return out
}
