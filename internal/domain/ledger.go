package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"secmomo/pkg/errors"
)

// LedgerEntry is the immutable record of one money movement. Sender and
// Receiver are counterparty identifiers: an email for end users, an agent
// code for agents, or SenderNone for agent-initiated deposits. NetAmount is
// the amount applied to the receiving agent's balance; it is derived once at
// creation and never recomputed.
type LedgerEntry struct {
	TransactionID string            `db:"transaction_id" json:"id"`
	Kind          TransactionKind   `db:"kind" json:"type"`
	Sender        string            `db:"sender" json:"sender"`
	Receiver      string            `db:"receiver" json:"receiver"`
	GrossAmount   decimal.Decimal   `db:"gross_amount" json:"amount"`
	Commission    decimal.Decimal   `db:"commission" json:"commission_earned"`
	NetAmount     decimal.Decimal   `db:"net_amount" json:"net_amount"`
	Status        TransactionStatus `db:"status" json:"status"`
	CreatedAt     time.Time         `db:"created_at" json:"time_stamp"`
	UpdatedAt     time.Time         `db:"updated_at" json:"-"`
}

// NewLedgerEntry creates a pending entry. The transaction id is generated
// here; amounts must already be validated and quoted by the commission
// policy.
func NewLedgerEntry(kind TransactionKind, sender, receiver string, gross, commission, net decimal.Decimal) *LedgerEntry {
	now := time.Now().UTC()
	return &LedgerEntry{
		TransactionID: NewTransactionID(),
		Kind:          kind,
		Sender:        sender,
		Receiver:      receiver,
		GrossAmount:   gross,
		Commission:    commission,
		NetAmount:     net,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkCompleted transitions pending -> completed.
func (e *LedgerEntry) MarkCompleted() error {
	return e.transition(StatusCompleted)
}

// MarkFailed transitions pending -> failed.
func (e *LedgerEntry) MarkFailed() error {
	return e.transition(StatusFailed)
}

func (e *LedgerEntry) transition(to TransactionStatus) error {
	if e.Status.Terminal() {
		return errors.ErrInvalidStateTransition
	}
	e.Status = to
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// InvolvesAgent reports whether the entry touches the given agent code on
// either side.
func (e *LedgerEntry) InvolvesAgent(code string) bool {
	return e.Sender == code || e.Receiver == code
}
