// Package transaction orchestrates the money-movement operations: deposit,
// withdrawal and agent-to-agent transfer. Each operation prices itself via
// the commission policy, leaves a pending ledger entry before anything else
// moves, and finishes in exactly one terminal state.
package transaction

import (
	"context"

	"github.com/shopspring/decimal"

	"secmomo/internal/commission"
	"secmomo/internal/domain"
	"secmomo/internal/store"
	"secmomo/internal/wallet"
	"secmomo/pkg/config"
	"secmomo/pkg/errors"
	"secmomo/pkg/logger"
)

// WalletService debits the end user's wallet for withdrawals.
type WalletService interface {
	Debit(ctx context.Context, email string, amount decimal.Decimal, reference string) (*wallet.DebitResult, error)
}

type DepositRequest struct {
	AgentCode string          `json:"agent_code" validate:"required,agent_code"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
}

type WithdrawRequest struct {
	AgentCode string          `json:"agent_code" validate:"required,agent_code"`
	UserEmail string          `json:"user_email" validate:"required,email"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
}

type TransferRequest struct {
	SenderCode   string          `json:"sender_code" validate:"required,agent_code"`
	ReceiverCode string          `json:"receiver_code" validate:"required,agent_code"`
	Amount       decimal.Decimal `json:"amount" validate:"required"`
}

type Service struct {
	store   store.Store
	wallet  WalletService
	policy  *commission.Policy
	ceiling decimal.Decimal
	floor   decimal.Decimal
	logger  logger.Logger
}

func NewService(st store.Store, w WalletService, policy *commission.Policy, cfg config.LedgerConfig, log logger.Logger) *Service {
	return &Service{
		store:   st,
		wallet:  w,
		policy:  policy,
		ceiling: cfg.MaxAgentBalance,
		floor:   cfg.MinOperatingBalance,
		logger:  log,
	}
}

// Deposit credits an agent's float with cash the agent paid in. Purely
// internal, no commission, no external call.
func (s *Service) Deposit(ctx context.Context, req DepositRequest) (*domain.LedgerEntry, error) {
	quote, err := s.policy.QuoteFor(domain.KindDeposit, req.Amount)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindAgentByCode(ctx, req.AgentCode); err != nil {
		return nil, err
	}

	entry := domain.NewLedgerEntry(domain.KindDeposit, domain.SenderNone, req.AgentCode,
		quote.Gross, quote.Fee, quote.AgentCredit)
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	err = s.commit(ctx, entry, func(tx store.Tx) error {
		if _, err := tx.LockAgent(ctx, req.AgentCode); err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, req.AgentCode, quote.AgentCredit); err != nil {
			return err
		}
		if quote.Fee.IsPositive() {
			if err := tx.AddFee(ctx, quote.Fee); err != nil {
				return err
			}
		}
		return tx.UpdateEntryStatus(ctx, entry.TransactionID, domain.StatusCompleted)
	})
	if err != nil {
		return entry, err
	}

	s.logger.Info("Deposit completed", map[string]interface{}{
		"transaction_id": entry.TransactionID,
		"agent_code":     req.AgentCode,
		"amount":         quote.Gross.String(),
	})
	return entry, nil
}

// Withdraw moves money from an end user's wallet into an agent's float. The
// user's wallet is debited first; the agent's balance changes only after the
// external debit is confirmed. The pending entry persisted before the call is
// the audit trail for crashes in between.
func (s *Service) Withdraw(ctx context.Context, req WithdrawRequest) (*domain.LedgerEntry, error) {
	quote, err := s.policy.QuoteFor(domain.KindWithdrawal, req.Amount)
	if err != nil {
		return nil, err
	}
	agent, err := s.store.FindAgentByCode(ctx, req.AgentCode)
	if err != nil {
		return nil, err
	}

	entry := domain.NewLedgerEntry(domain.KindWithdrawal, req.UserEmail, req.AgentCode,
		quote.Gross, quote.Fee, quote.AgentCredit)
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	// Advisory ceiling check before the external debit. Not authoritative,
	// the balance can move before the commit, but it avoids charging the
	// user's wallet for an operation that is already doomed.
	if agent.Balance.Add(quote.AgentCredit).GreaterThan(s.ceiling) {
		s.fail(ctx, entry)
		return entry, errors.ErrBalanceCeilingExceeded
	}

	if _, err := s.wallet.Debit(ctx, req.UserEmail, quote.Gross, entry.TransactionID); err != nil {
		s.fail(ctx, entry)
		return entry, err
	}

	err = s.commit(ctx, entry, func(tx store.Tx) error {
		if _, err := tx.LockAgent(ctx, req.AgentCode); err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, req.AgentCode, quote.AgentCredit); err != nil {
			return err
		}
		if err := tx.AddFee(ctx, quote.Fee); err != nil {
			return err
		}
		return tx.UpdateEntryStatus(ctx, entry.TransactionID, domain.StatusCompleted)
	})
	if err != nil {
		// The external debit already happened; the failed entry is what
		// reconciliation uses to find and correct the orphaned debit.
		s.logger.Error("Withdrawal failed after external debit", map[string]interface{}{
			"transaction_id": entry.TransactionID,
			"agent_code":     req.AgentCode,
			"error":          err.Error(),
		})
		return entry, err
	}

	s.logger.Info("Withdrawal completed", map[string]interface{}{
		"transaction_id": entry.TransactionID,
		"agent_code":     req.AgentCode,
		"amount":         quote.Gross.String(),
		"commission":     quote.Fee.String(),
	})
	return entry, nil
}

// Transfer moves float between two agents. The sender pays the commission on
// top of the gross amount; the receiver gets the gross. The operating floor is
// a precondition on the sender's standing balance, not on what the debit
// leaves behind. Entirely local, one atomic scope.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*domain.LedgerEntry, error) {
	if req.SenderCode == req.ReceiverCode {
		return nil, errors.ErrSameSenderReceiver
	}
	quote, err := s.policy.QuoteFor(domain.KindTransfer, req.Amount)
	if err != nil {
		return nil, err
	}
	sender, err := s.store.FindAgentByCode(ctx, req.SenderCode)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindAgentByCode(ctx, req.ReceiverCode); err != nil {
		return nil, err
	}
	// Preconditions checked before anything persists: a request the sender's
	// current balance plainly cannot satisfy leaves no ledger trace.
	if sender.Balance.LessThan(s.floor) {
		return nil, errors.ErrBelowOperatingBalance
	}
	if sender.Balance.LessThan(quote.SenderDebit) {
		return nil, errors.ErrInsufficientBalance
	}

	entry := domain.NewLedgerEntry(domain.KindTransfer, req.SenderCode, req.ReceiverCode,
		quote.Gross, quote.Fee, quote.AgentCredit)
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	err = s.commit(ctx, entry, func(tx store.Tx) error {
		// Lock both agents in lexical code order so concurrent transfers
		// between the same pair cannot deadlock.
		first, second := req.SenderCode, req.ReceiverCode
		if second < first {
			first, second = second, first
		}
		var locked *domain.Agent
		for _, code := range []string{first, second} {
			agent, err := tx.LockAgent(ctx, code)
			if err != nil {
				return err
			}
			if code == req.SenderCode {
				locked = agent
			}
		}

		// Re-check the floor under the lock; a concurrent debit can
		// invalidate the upfront read. ApplyDelta re-checks sufficiency.
		if locked.Balance.LessThan(s.floor) {
			return errors.ErrBelowOperatingBalance
		}
		if _, err := tx.ApplyDelta(ctx, req.SenderCode, quote.SenderDebit.Neg()); err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, req.ReceiverCode, quote.AgentCredit); err != nil {
			return err
		}
		if err := tx.AddFee(ctx, quote.Fee); err != nil {
			return err
		}
		return tx.UpdateEntryStatus(ctx, entry.TransactionID, domain.StatusCompleted)
	})
	if err != nil {
		return entry, err
	}

	s.logger.Info("Transfer completed", map[string]interface{}{
		"transaction_id": entry.TransactionID,
		"sender":         req.SenderCode,
		"receiver":       req.ReceiverCode,
		"amount":         quote.Gross.String(),
		"commission":     quote.Fee.String(),
	})
	return entry, nil
}

// commit runs the atomic scope and settles the entry's terminal state. On a
// scope error the entry is marked failed so the audit trail never ends on
// pending for an operation that resolved.
func (s *Service) commit(ctx context.Context, entry *domain.LedgerEntry, fn func(tx store.Tx) error) error {
	if err := s.store.RunInTx(ctx, fn); err != nil {
		s.fail(ctx, entry)
		return err
	}
	_ = entry.MarkCompleted()
	return nil
}

func (s *Service) fail(ctx context.Context, entry *domain.LedgerEntry) {
	_ = entry.MarkFailed()
	if err := s.store.UpdateEntryStatus(ctx, entry.TransactionID, domain.StatusFailed); err != nil {
		s.logger.Error("Failed to finalize ledger entry", map[string]interface{}{
			"transaction_id": entry.TransactionID,
			"error":          err.Error(),
		})
	}
}
