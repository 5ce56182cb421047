// Package domain holds the core entities of the agent-banking ledger.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind identifies a money-movement operation.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
	KindTransfer   TransactionKind = "transfer"
)

// TransactionStatus is the lifecycle state of a ledger entry.
// pending -> completed | failed; both are terminal.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SenderNone marks agent-initiated deposits with no end-user counterparty.
const SenderNone = "none"

// Agent is the financial record of a registered agent: the float balance and
// the identifiers the ledger needs. Credentials live with the identity
// service, not here.
type Agent struct {
	Code      string          `db:"agent_code" json:"agent_code"`
	Email     string          `db:"email" json:"email"`
	Number    string          `db:"number" json:"number"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// NewAgentCode generates a short system-unique agent code.
func NewAgentCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

// NewTransactionID generates the opaque 12-character ledger reference.
func NewTransactionID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}

// Revenue is the process-wide commission accumulator: a single storage row,
// only ever incremented.
type Revenue struct {
	TotalFees   decimal.Decimal `db:"total_fees" json:"total_fees"`
	LastUpdated time.Time       `db:"last_updated" json:"last_updated"`
}

// WindowMetrics aggregates completed entries inside a time window.
type WindowMetrics struct {
	Transactions int64           `db:"transactions" json:"transactions"`
	Commission   decimal.Decimal `db:"commission" json:"commission"`
	Volume       decimal.Decimal `db:"volume" json:"volume"`
}
