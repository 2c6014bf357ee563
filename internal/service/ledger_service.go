// Package service orchestrates the store and the ledger engine.
//
// Every mutating operation on a group runs under that group's write lock:
// load history, rebuild the ledger, validate and apply the change, persist,
// then publish. Reads take the read lock so they never observe a history
// that is half written.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/splitsnap/internal/events"
	"github.com/mmynk/splitsnap/internal/ledger"
	"github.com/mmynk/splitsnap/internal/metrics"
	"github.com/mmynk/splitsnap/internal/storage"
)

// ErrInvalidInput is returned for requests missing required fields.
var ErrInvalidInput = errors.New("invalid input")

// LedgerService implements group, receipt and settlement operations.
type LedgerService struct {
	store     storage.Store
	locks     *groupLocks
	publisher events.Publisher
	metrics   *metrics.Ledger
	now       func() time.Time
}

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithPublisher sets where ledger events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithMetrics sets the Prometheus instruments.
func WithMetrics(m *metrics.Ledger) Option {
	return func(s *LedgerService) { s.metrics = m }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// NewLedgerService creates a new LedgerService with the given storage backend.
func NewLedgerService(store storage.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:     store,
		locks:     newGroupLocks(),
		publisher: events.NopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	return s
}

// groupLocks hands out one RWMutex per group id. Entries are never removed;
// the set is bounded by the number of groups.
type groupLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func newGroupLocks() *groupLocks {
	return &groupLocks{locks: make(map[string]*sync.RWMutex)}
}

func (l *groupLocks) get(groupID string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[groupID]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[groupID] = m
	}
	return m
}

// withWrite runs fn while holding the group's write lock.
func (s *LedgerService) withWrite(groupID string, fn func() error) error {
	m := s.locks.get(groupID)
	m.Lock()
	defer m.Unlock()
	return fn()
}

// withRead runs fn while holding the group's read lock.
func (s *LedgerService) withRead(groupID string, fn func() error) error {
	m := s.locks.get(groupID)
	m.RLock()
	defer m.RUnlock()
	return fn()
}

// loadLedger rebuilds a group's ledger from its durable history.
func (s *LedgerService) loadLedger(ctx context.Context, groupID string) (*ledger.Group, error) {
	if groupID == "" {
		return nil, fmt.Errorf("%w: group_id required", ErrInvalidInput)
	}
	start := s.now()

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	receipts, err := s.store.LoadFinalizedReceipts(ctx, groupID)
	if err != nil {
		return nil, err
	}
	settlements, err := s.store.LoadSettlements(ctx, groupID)
	if err != nil {
		return nil, err
	}

	g, err := ledger.Rebuild(groupID, group.Members, receipts, settlements)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild ledger: %w", err)
	}

	s.metrics.RebuildSeconds.Observe(s.now().Sub(start).Seconds())
	slog.Debug("Ledger rebuilt",
		"group_id", groupID,
		"receipts_count", len(receipts),
		"settlements_count", len(settlements),
	)
	return g, nil
}

// loadForWrite rebuilds the ledger and compares it with the cached
// snapshot. A mismatch means the cache went stale; the rebuild wins and the
// snapshot is overwritten after the mutation.
func (s *LedgerService) loadForWrite(ctx context.Context, groupID string) (*ledger.Group, error) {
	g, err := s.loadLedger(ctx, groupID)
	if err != nil {
		return nil, err
	}

	cached, err := s.store.LoadBalanceSnapshot(ctx, groupID)
	if err != nil {
		slog.Warn("Failed to load balance snapshot", "group_id", groupID, "error", err)
		return g, nil
	}
	if len(cached) > 0 && !maps.Equal(cached, g.Balances()) {
		slog.Warn("Balance snapshot drift, using rebuilt balances",
			"group_id", groupID,
			"cached", cached,
			"rebuilt", g.Balances(),
		)
	}
	return g, nil
}

// committed persists the new balance snapshot and publishes the event. Both
// are best effort: the history is already durable.
func (s *LedgerService) committed(ctx context.Context, g *ledger.Group, typ events.Type, subjectID string) {
	balances := g.Balances()

	if err := s.store.PersistBalanceSnapshot(ctx, g.ID(), balances); err != nil {
		slog.Warn("Failed to persist balance snapshot", "group_id", g.ID(), "error", err)
	}

	event := events.Event{
		Type:       typ,
		GroupID:    g.ID(),
		SubjectID:  subjectID,
		Balances:   balances,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Warn("Failed to publish ledger event", "type", typ, "group_id", g.ID(), "error", err)
	}
}

// reject counts a validation failure.
func (s *LedgerService) reject(operation string, err error) {
	s.metrics.Rejections.WithLabelValues(operation, Reason(err)).Inc()
}

// Reason returns a stable label for an error kind.
func Reason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrAmountOverflow):
		return "amount_overflow"
	case errors.Is(err, ledger.ErrUnassignedItem):
		return "unassigned_item"
	case errors.Is(err, ledger.ErrTotalMismatch):
		return "total_mismatch"
	case errors.Is(err, ledger.ErrInvalidQuantityOrPrice):
		return "invalid_quantity_or_price"
	case errors.Is(err, ledger.ErrOverSettlement):
		return "over_settlement"
	case errors.Is(err, ledger.ErrUnknownMember):
		return "unknown_member"
	case errors.Is(err, ledger.ErrInvalidMember):
		return "invalid_member"
	case errors.Is(err, ledger.ErrMemberHasBalance):
		return "member_has_balance"
	case errors.Is(err, ledger.ErrGroupMismatch):
		return "group_mismatch"
	case errors.Is(err, ledger.ErrInvalidSettlement):
		return "invalid_settlement"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
