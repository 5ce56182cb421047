package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"secmomo/internal/domain"
	"secmomo/pkg/errors"
)

type pgTx struct {
	tx      *sqlx.Tx
	ceiling decimal.Decimal
}

func (t *pgTx) LockAgent(ctx context.Context, code string) (*domain.Agent, error) {
	agent := &domain.Agent{}
	query := `SELECT * FROM agents WHERE agent_code = $1 FOR UPDATE`
	err := t.tx.GetContext(ctx, agent, query, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAgentNotFound
		}
		return nil, errors.Wrap(err, "failed to lock agent")
	}
	return agent, nil
}

func (t *pgTx) ApplyDelta(ctx context.Context, code string, delta decimal.Decimal) (*domain.Agent, error) {
	// The row is already locked by LockAgent, so this check-then-set
	// cannot race with a concurrent mutation of the same agent.
	var balance decimal.Decimal
	err := t.tx.GetContext(ctx, &balance, `SELECT balance FROM agents WHERE agent_code = $1`, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAgentNotFound
		}
		return nil, errors.Wrap(err, "failed to read balance")
	}

	next := balance.Add(delta)
	if next.IsNegative() {
		return nil, errors.ErrInsufficientBalance
	}
	if next.GreaterThan(t.ceiling) {
		return nil, errors.ErrBalanceCeilingExceeded
	}

	agent := &domain.Agent{}
	query := `
		UPDATE agents SET
			balance = balance + $1,
			updated_at = NOW()
		WHERE agent_code = $2
		RETURNING *
	`
	if err := t.tx.GetContext(ctx, agent, query, delta, code); err != nil {
		return nil, errors.Wrap(err, "failed to apply balance delta")
	}
	return agent, nil
}

func (t *pgTx) UpdateEntryStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error {
	return updateEntryStatus(ctx, t.tx, transactionID, status)
}

func (t *pgTx) AddFee(ctx context.Context, amount decimal.Decimal) error {
	return addFee(ctx, t.tx, amount)
}
