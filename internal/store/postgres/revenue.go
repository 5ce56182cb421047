package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"secmomo/internal/domain"
	"secmomo/pkg/errors"
)

// addFee increments the revenue singleton with a storage-level atomic add;
// no read-modify-write happens at the application layer.
func addFee(ctx context.Context, ext sqlx.ExtContext, amount decimal.Decimal) error {
	query := `
		INSERT INTO revenue (id, total_fees, last_updated)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			total_fees = revenue.total_fees + EXCLUDED.total_fees,
			last_updated = NOW()
	`
	_, err := ext.ExecContext(ctx, query, amount)
	return errors.Wrap(err, "failed to accrue fee")
}

func (s *Store) Revenue(ctx context.Context) (*domain.Revenue, error) {
	revenue := &domain.Revenue{}
	query := `SELECT total_fees, last_updated FROM revenue WHERE id = 1`
	err := s.db.GetContext(ctx, revenue, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return &domain.Revenue{TotalFees: decimal.Zero}, nil
		}
		return nil, errors.Wrap(err, "failed to read revenue")
	}
	return revenue, nil
}
