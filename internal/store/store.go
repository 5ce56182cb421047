// Package store defines the persistence contracts of the ledger core.
// Two implementations exist with identical semantics: store/postgres for
// production and store/memory for tests and local development.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"secmomo/internal/domain"
)

// Tx is the atomic mutation scope of one operation. Balance changes, fee
// accrual and ledger status updates inside a Tx commit or roll back together.
// Agents must be locked before their balance is touched; callers lock
// multiple agents in lexical code order to avoid deadlock.
type Tx interface {
	// LockAgent acquires the agent's exclusive lock for the remainder of
	// the scope and returns the current record.
	LockAgent(ctx context.Context, code string) (*domain.Agent, error)

	// ApplyDelta adds delta to a locked agent's balance. The resulting
	// balance must stay within [0, ceiling]; violations return
	// ErrInsufficientBalance or ErrBalanceCeilingExceeded and leave the
	// balance untouched. Every balance mutation in the system goes
	// through here.
	ApplyDelta(ctx context.Context, code string, delta decimal.Decimal) (*domain.Agent, error)

	// UpdateEntryStatus moves a pending entry to a terminal status.
	// Entries already terminal are immutable; attempting to touch one
	// returns ErrInvalidStateTransition.
	UpdateEntryStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error

	// AddFee atomically increments the revenue singleton.
	AddFee(ctx context.Context, amount decimal.Decimal) error
}

// Store is the full persistence surface.
type Store interface {
	// RunInTx executes fn inside one atomic scope.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	CreateAgent(ctx context.Context, agent *domain.Agent) error
	FindAgentByCode(ctx context.Context, code string) (*domain.Agent, error)

	// CreateEntry persists a pending entry outside any enclosing scope,
	// so an in-flight operation always leaves an auditable record.
	CreateEntry(ctx context.Context, entry *domain.LedgerEntry) error
	// UpdateEntryStatus is the out-of-scope variant of Tx.UpdateEntryStatus,
	// used to finalize entries whose atomic scope never ran or rolled back.
	UpdateEntryStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error
	FindEntry(ctx context.Context, transactionID string) (*domain.LedgerEntry, error)

	// ListCompleted returns completed entries involving the agent within
	// [from, to], newest first.
	ListCompleted(ctx context.Context, agentCode string, from, to time.Time) ([]*domain.LedgerEntry, error)
	// AggregateCompleted computes count, commission and volume over the
	// same selection.
	AggregateCompleted(ctx context.Context, agentCode string, from, to time.Time) (*domain.WindowMetrics, error)

	// Reconciliation queries.
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.LedgerEntry, error)
	AgentsOutsideBounds(ctx context.Context, ceiling decimal.Decimal) ([]*domain.Agent, error)
	SumCompletedCommission(ctx context.Context) (decimal.Decimal, error)
	Revenue(ctx context.Context) (*domain.Revenue, error)
}
