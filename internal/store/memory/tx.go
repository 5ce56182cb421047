package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"secmomo/internal/domain"
	"secmomo/pkg/errors"
)

// memTx stages mutations against the store and applies them in one step at
// commit. Per-agent mutexes taken in LockAgent are held across the whole
// scope, so the staged view of a locked agent cannot go stale.
type memTx struct {
	store    *Store
	held     []string
	balances map[string]decimal.Decimal
	statuses map[string]domain.TransactionStatus
	fee      decimal.Decimal
}

func (t *memTx) LockAgent(ctx context.Context, code string) (*domain.Agent, error) {
	if !t.holds(code) {
		t.store.lockFor(code).Lock()
		t.held = append(t.held, code)
	}
	agent, err := t.store.FindAgentByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if staged, ok := t.balances[code]; ok {
		agent.Balance = staged
	}
	return agent, nil
}

func (t *memTx) ApplyDelta(ctx context.Context, code string, delta decimal.Decimal) (*domain.Agent, error) {
	agent, err := t.store.FindAgentByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	current := agent.Balance
	if staged, ok := t.balances[code]; ok {
		current = staged
	}

	next := current.Add(delta)
	if next.IsNegative() {
		return nil, errors.ErrInsufficientBalance
	}
	if next.GreaterThan(t.store.ceiling) {
		return nil, errors.ErrBalanceCeilingExceeded
	}

	t.balances[code] = next
	agent.Balance = next
	agent.UpdatedAt = time.Now().UTC()
	return agent, nil
}

func (t *memTx) UpdateEntryStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error {
	if !status.Terminal() {
		return errors.ErrInvalidStateTransition
	}
	entry, err := t.store.FindEntry(ctx, transactionID)
	if err != nil {
		return err
	}
	if entry.Status.Terminal() {
		return errors.ErrInvalidStateTransition
	}
	if _, ok := t.statuses[transactionID]; ok {
		return errors.ErrInvalidStateTransition
	}
	t.statuses[transactionID] = status
	return nil
}

func (t *memTx) AddFee(ctx context.Context, amount decimal.Decimal) error {
	t.fee = t.fee.Add(amount)
	return nil
}

func (t *memTx) commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	// Validate every staged status before applying anything: a status that
	// lost a race to an out-of-scope update rejects the whole commit, the
	// same way the rows-affected guard fails the postgres transaction.
	for id := range t.statuses {
		entry, ok := t.store.entries[id]
		if !ok {
			return errors.ErrEntryNotFound
		}
		if entry.Status.Terminal() {
			return errors.ErrInvalidStateTransition
		}
	}

	now := time.Now().UTC()
	for code, balance := range t.balances {
		if agent, ok := t.store.agents[code]; ok {
			agent.Balance = balance
			agent.UpdatedAt = now
		}
	}
	for id, status := range t.statuses {
		if err := t.store.applyStatusLocked(id, status); err != nil {
			return err
		}
	}
	if !t.fee.IsZero() {
		t.store.revenue.TotalFees = t.store.revenue.TotalFees.Add(t.fee)
		t.store.revenue.LastUpdated = now
	}
	return nil
}

func (t *memTx) release() {
	for _, code := range t.held {
		t.store.lockFor(code).Unlock()
	}
	t.held = nil
}

func (t *memTx) holds(code string) bool {
	for _, held := range t.held {
		if held == code {
			return true
		}
	}
	return false
}
