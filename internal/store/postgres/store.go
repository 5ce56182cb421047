// Package postgres implements store.Store on PostgreSQL via sqlx.
package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"secmomo/internal/store"
	"secmomo/pkg/errors"
)

type Store struct {
	db      *sqlx.DB
	ceiling decimal.Decimal
}

// New creates the store. ceiling is the agent balance cap enforced on every
// ApplyDelta.
func New(db *sqlx.DB, ceiling decimal.Decimal) *Store {
	return &Store{db: db, ceiling: ceiling}
}

// RunInTx executes fn inside one database transaction. Per-agent row locks
// acquired via Tx.LockAgent are held until commit or rollback.
func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx, ceiling: s.ceiling}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}
