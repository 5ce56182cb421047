// Package memory implements store.Store in process memory. It mirrors the
// locking and atomicity semantics of store/postgres so service tests exercise
// the same contract the production store enforces.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"secmomo/internal/domain"
	"secmomo/internal/store"
	"secmomo/pkg/errors"
)

type Store struct {
	mu      sync.RWMutex
	agents  map[string]*domain.Agent
	entries map[string]*domain.LedgerEntry
	locks   map[string]*sync.Mutex
	revenue domain.Revenue
	ceiling decimal.Decimal
}

func New(ceiling decimal.Decimal) *Store {
	return &Store{
		agents:  make(map[string]*domain.Agent),
		entries: make(map[string]*domain.LedgerEntry),
		locks:   make(map[string]*sync.Mutex),
		ceiling: ceiling,
	}
}

// RunInTx runs fn against a staged view of the store. Per-agent locks taken
// via Tx.LockAgent are held until the staged changes are applied or dropped.
func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx := &memTx{
		store:    s,
		balances: make(map[string]decimal.Decimal),
		statuses: make(map[string]domain.TransactionStatus),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (s *Store) CreateAgent(ctx context.Context, agent *domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[agent.Code]; ok {
		return errors.ErrAgentAlreadyExists
	}
	cp := *agent
	s.agents[agent.Code] = &cp
	return nil
}

func (s *Store) FindAgentByCode(ctx context.Context, code string) (*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[code]
	if !ok {
		return nil, errors.ErrAgentNotFound
	}
	cp := *agent
	return &cp, nil
}

func (s *Store) CreateEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries[entry.TransactionID] = &cp
	return nil
}

func (s *Store) UpdateEntryStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error {
	if !status.Terminal() {
		return errors.ErrInvalidStateTransition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyStatusLocked(transactionID, status)
}

// applyStatusLocked enforces terminal immutability; callers hold s.mu.
func (s *Store) applyStatusLocked(transactionID string, status domain.TransactionStatus) error {
	entry, ok := s.entries[transactionID]
	if !ok {
		return errors.ErrEntryNotFound
	}
	if entry.Status.Terminal() {
		return errors.ErrInvalidStateTransition
	}
	entry.Status = status
	entry.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) FindEntry(ctx context.Context, transactionID string) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[transactionID]
	if !ok {
		return nil, errors.ErrEntryNotFound
	}
	cp := *entry
	return &cp, nil
}

func (s *Store) ListCompleted(ctx context.Context, agentCode string, from, to time.Time) ([]*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, entry := range s.entries {
		if entry.Status != domain.StatusCompleted || !entry.InvolvesAgent(agentCode) {
			continue
		}
		if entry.CreatedAt.Before(from) || entry.CreatedAt.After(to) {
			continue
		}
		cp := *entry
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AggregateCompleted(ctx context.Context, agentCode string, from, to time.Time) (*domain.WindowMetrics, error) {
	entries, err := s.ListCompleted(ctx, agentCode, from, to)
	if err != nil {
		return nil, err
	}
	metrics := &domain.WindowMetrics{}
	for _, entry := range entries {
		metrics.Transactions++
		metrics.Commission = metrics.Commission.Add(entry.Commission)
		metrics.Volume = metrics.Volume.Add(entry.GrossAmount)
	}
	return metrics, nil
}

func (s *Store) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, entry := range s.entries {
		if entry.Status == domain.StatusPending && entry.CreatedAt.Before(cutoff) {
			cp := *entry
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AgentsOutsideBounds(ctx context.Context, ceiling decimal.Decimal) ([]*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Agent
	for _, agent := range s.agents {
		if agent.Balance.IsNegative() || agent.Balance.GreaterThan(ceiling) {
			cp := *agent
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) SumCompletedCommission(ctx context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, entry := range s.entries {
		if entry.Status == domain.StatusCompleted {
			total = total.Add(entry.Commission)
		}
	}
	return total, nil
}

func (s *Store) Revenue(ctx context.Context) (*domain.Revenue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := s.revenue
	return &cp, nil
}

// lockFor returns the per-agent mutex, creating it on first use. The agent
// record itself is looked up separately.
func (s *Store) lockFor(code string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.locks[code]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[code] = mu
	}
	return mu
}
