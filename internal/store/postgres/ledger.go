package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"secmomo/internal/domain"
	"secmomo/pkg/errors"
)

func (s *Store) CreateEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (
			transaction_id, kind, sender, receiver,
			gross_amount, commission, net_amount, status, created_at, updated_at
		) VALUES (
			:transaction_id, :kind, :sender, :receiver,
			:gross_amount, :commission, :net_amount, :status, :created_at, :updated_at
		)
	`
	_, err := s.db.NamedExecContext(ctx, query, entry)
	return errors.Wrap(err, "failed to create ledger entry")
}

func (s *Store) UpdateEntryStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error {
	return updateEntryStatus(ctx, s.db, transactionID, status)
}

// updateEntryStatus guards terminal immutability at the storage layer: only
// pending rows can move, and only to a terminal status.
func updateEntryStatus(ctx context.Context, ext sqlx.ExtContext, transactionID string, status domain.TransactionStatus) error {
	if !status.Terminal() {
		return errors.ErrInvalidStateTransition
	}

	query := `
		UPDATE ledger_entries SET
			status = $2,
			updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'pending'
	`
	result, err := ext.ExecContext(ctx, query, transactionID, status)
	if err != nil {
		return errors.Wrap(err, "failed to update ledger entry status")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		var exists bool
		if err := sqlx.GetContext(ctx, ext, &exists,
			`SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE transaction_id = $1)`, transactionID); err != nil {
			return errors.Wrap(err, "failed to check ledger entry existence")
		}
		if !exists {
			return errors.ErrEntryNotFound
		}
		return errors.ErrInvalidStateTransition
	}
	return nil
}

func (s *Store) FindEntry(ctx context.Context, transactionID string) (*domain.LedgerEntry, error) {
	entry := &domain.LedgerEntry{}
	query := `SELECT * FROM ledger_entries WHERE transaction_id = $1`
	err := s.db.GetContext(ctx, entry, query, transactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrEntryNotFound
		}
		return nil, errors.Wrap(err, "failed to find ledger entry")
	}
	return entry, nil
}

func (s *Store) ListCompleted(ctx context.Context, agentCode string, from, to time.Time) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	query := `
		SELECT * FROM ledger_entries
		WHERE (sender = $1 OR receiver = $1)
		  AND status = 'completed'
		  AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC
	`
	err := s.db.SelectContext(ctx, &entries, query, agentCode, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list completed entries")
	}
	return entries, nil
}

func (s *Store) AggregateCompleted(ctx context.Context, agentCode string, from, to time.Time) (*domain.WindowMetrics, error) {
	metrics := &domain.WindowMetrics{}
	query := `
		SELECT
			COUNT(*) AS transactions,
			COALESCE(SUM(commission), 0) AS commission,
			COALESCE(SUM(gross_amount), 0) AS volume
		FROM ledger_entries
		WHERE (sender = $1 OR receiver = $1)
		  AND status = 'completed'
		  AND created_at >= $2 AND created_at <= $3
	`
	err := s.db.GetContext(ctx, metrics, query, agentCode, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate completed entries")
	}
	return metrics, nil
}

func (s *Store) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	query := `
		SELECT * FROM ledger_entries
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
	`
	err := s.db.SelectContext(ctx, &entries, query, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list stale pending entries")
	}
	return entries, nil
}

func (s *Store) SumCompletedCommission(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(commission), 0) FROM ledger_entries WHERE status = 'completed'`
	err := s.db.GetContext(ctx, &total, query)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to sum completed commission")
	}
	return total, nil
}
