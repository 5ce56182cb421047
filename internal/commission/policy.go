// Package commission implements the platform fee policy.
//
// One documented rule per operation kind, applied uniformly:
//
//   - withdrawal: the platform adds the commission to the agent's credit,
//     so the agent receives gross + fee;
//   - transfer: the sender pays the commission on top, so the sender is
//     debited gross + fee while the receiver is credited gross;
//   - deposit: no commission; the agent's float grows by gross.
//
// Fees are gross * rate rounded to 2 fractional digits with banker's
// rounding (round-half-even).
package commission

import (
	"github.com/shopspring/decimal"

	"secmomo/internal/domain"
	"secmomo/pkg/config"
	"secmomo/pkg/errors"
)

// Quote is the priced breakdown of an operation, computed exactly once
// before any state changes.
type Quote struct {
	Gross decimal.Decimal
	Fee   decimal.Decimal
	// AgentCredit is the amount applied to the receiving agent's balance.
	AgentCredit decimal.Decimal
	// SenderDebit is the amount removed from the sending agent's balance.
	// Zero for deposits and withdrawals, which have no sending agent.
	SenderDebit decimal.Decimal
}

type Policy struct {
	rates map[domain.TransactionKind]decimal.Decimal
	max   decimal.Decimal
}

func NewPolicy(cfg config.LedgerConfig) *Policy {
	return &Policy{
		rates: map[domain.TransactionKind]decimal.Decimal{
			domain.KindWithdrawal: cfg.WithdrawalCommissionRate,
			domain.KindTransfer:   cfg.TransferCommissionRate,
			domain.KindDeposit:    cfg.DepositCommissionRate,
		},
		max: cfg.MaxTransactionAmount,
	}
}

// Rate returns the configured commission rate for the given kind.
func (p *Policy) Rate(kind domain.TransactionKind) decimal.Decimal {
	return p.rates[kind]
}

// QuoteFor validates the gross amount and prices the operation.
func (p *Policy) QuoteFor(kind domain.TransactionKind, gross decimal.Decimal) (Quote, error) {
	if gross.LessThanOrEqual(decimal.Zero) || gross.GreaterThan(p.max) {
		return Quote{}, errors.ErrInvalidAmount
	}

	fee := gross.Mul(p.rates[kind]).RoundBank(2)

	q := Quote{Gross: gross, Fee: fee}
	switch kind {
	case domain.KindWithdrawal:
		q.AgentCredit = gross.Add(fee)
	case domain.KindTransfer:
		q.AgentCredit = gross
		q.SenderDebit = gross.Add(fee)
	case domain.KindDeposit:
		q.AgentCredit = gross
	default:
		return Quote{}, errors.ErrInvalidAmount
	}
	return q, nil
}
