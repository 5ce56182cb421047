package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secmomo/internal/domain"
	"secmomo/internal/store"
	"secmomo/pkg/errors"
)

func newTestStore() *Store {
	return New(decimal.NewFromInt(100000))
}

func seedAgent(t *testing.T, s *Store, code string, balance int64) {
	t.Helper()
	err := s.CreateAgent(context.Background(), &domain.Agent{
		Code:    code,
		Email:   code + "@agents.test",
		Balance: decimal.NewFromInt(balance),
	})
	require.NoError(t, err)
}

func TestCreateAgentDuplicate(t *testing.T) {
	s := newTestStore()
	seedAgent(t, s, "AG000001", 100)

	err := s.CreateAgent(context.Background(), &domain.Agent{Code: "AG000001"})
	assert.ErrorIs(t, err, errors.ErrAgentAlreadyExists)
}

func TestFindAgentByCodeNotFound(t *testing.T) {
	s := newTestStore()

	_, err := s.FindAgentByCode(context.Background(), "MISSING")
	assert.ErrorIs(t, err, errors.ErrAgentNotFound)
}

func TestApplyDeltaBounds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	seedAgent(t, s, "AG000001", 50)

	err := s.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := tx.LockAgent(ctx, "AG000001"); err != nil {
			return err
		}
		_, err := tx.ApplyDelta(ctx, "AG000001", decimal.NewFromInt(-60))
		return err
	})
	assert.ErrorIs(t, err, errors.ErrInsufficientBalance)

	err = s.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := tx.LockAgent(ctx, "AG000001"); err != nil {
			return err
		}
		_, err := tx.ApplyDelta(ctx, "AG000001", decimal.NewFromInt(200000))
		return err
	})
	assert.ErrorIs(t, err, errors.ErrBalanceCeilingExceeded)

	// Failed scopes leave the balance untouched.
	agent, err := s.FindAgentByCode(ctx, "AG000001")
	require.NoError(t, err)
	assert.True(t, agent.Balance.Equal(decimal.NewFromInt(50)))
}

func TestRunInTxRollbackDiscardsStagedChanges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	seedAgent(t, s, "AG000001", 100)

	entry := domain.NewLedgerEntry(domain.KindDeposit, domain.SenderNone, "AG000001",
		decimal.NewFromInt(40), decimal.Zero, decimal.NewFromInt(40))
	require.NoError(t, s.CreateEntry(ctx, entry))

	boom := errors.Wrap(assert.AnError, "forced")
	err := s.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := tx.LockAgent(ctx, "AG000001"); err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, "AG000001", decimal.NewFromInt(40)); err != nil {
			return err
		}
		if err := tx.UpdateEntryStatus(ctx, entry.TransactionID, domain.StatusCompleted); err != nil {
			return err
		}
		if err := tx.AddFee(ctx, decimal.NewFromInt(3)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	agent, err := s.FindAgentByCode(ctx, "AG000001")
	require.NoError(t, err)
	assert.True(t, agent.Balance.Equal(decimal.NewFromInt(100)))

	stored, err := s.FindEntry(ctx, entry.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)

	revenue, err := s.Revenue(ctx)
	require.NoError(t, err)
	assert.True(t, revenue.TotalFees.IsZero())
}

func TestUpdateEntryStatusTerminalImmutable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	entry := domain.NewLedgerEntry(domain.KindDeposit, domain.SenderNone, "AG000001",
		decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(10))
	require.NoError(t, s.CreateEntry(ctx, entry))

	require.NoError(t, s.UpdateEntryStatus(ctx, entry.TransactionID, domain.StatusCompleted))

	err := s.UpdateEntryStatus(ctx, entry.TransactionID, domain.StatusFailed)
	assert.ErrorIs(t, err, errors.ErrInvalidStateTransition)

	err = s.UpdateEntryStatus(ctx, "NO-SUCH-ID", domain.StatusFailed)
	assert.ErrorIs(t, err, errors.ErrEntryNotFound)

	err = s.UpdateEntryStatus(ctx, entry.TransactionID, domain.StatusPending)
	assert.ErrorIs(t, err, errors.ErrInvalidStateTransition)
}

func TestCommitRejectsStatusSettledOutsideScope(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	seedAgent(t, s, "AG000001", 100)

	entry := domain.NewLedgerEntry(domain.KindDeposit, domain.SenderNone, "AG000001",
		decimal.NewFromInt(40), decimal.Zero, decimal.NewFromInt(40))
	require.NoError(t, s.CreateEntry(ctx, entry))

	// The entry is settled out of scope after the status is staged but
	// before commit. The commit must fail and drop its staged changes.
	err := s.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := tx.LockAgent(ctx, "AG000001"); err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, "AG000001", decimal.NewFromInt(40)); err != nil {
			return err
		}
		if err := tx.UpdateEntryStatus(ctx, entry.TransactionID, domain.StatusCompleted); err != nil {
			return err
		}
		return s.UpdateEntryStatus(ctx, entry.TransactionID, domain.StatusFailed)
	})
	assert.ErrorIs(t, err, errors.ErrInvalidStateTransition)

	stored, err := s.FindEntry(ctx, entry.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)

	agent, err := s.FindAgentByCode(ctx, "AG000001")
	require.NoError(t, err)
	assert.True(t, agent.Balance.Equal(decimal.NewFromInt(100)))
}

func TestConcurrentAddFee(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	const workers = 50
	fee := decimal.RequireFromString("1.25")

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunInTx(ctx, func(tx store.Tx) error {
				return tx.AddFee(ctx, fee)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	revenue, err := s.Revenue(ctx)
	require.NoError(t, err)
	assert.True(t, revenue.TotalFees.Equal(fee.Mul(decimal.NewFromInt(workers))),
		"got %s", revenue.TotalFees)
}

func TestConcurrentDrainExactlyOneSucceeds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	seedAgent(t, s, "AG000001", 100)

	drain := decimal.NewFromInt(-80)
	results := make(chan error, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.RunInTx(ctx, func(tx store.Tx) error {
				if _, err := tx.LockAgent(ctx, "AG000001"); err != nil {
					return err
				}
				_, err := tx.ApplyDelta(ctx, "AG000001", drain)
				return err
			})
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
		} else if errors.Is(err, errors.ErrInsufficientBalance) {
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	agent, err := s.FindAgentByCode(ctx, "AG000001")
	require.NoError(t, err)
	assert.True(t, agent.Balance.Equal(decimal.NewFromInt(20)))
}

func TestListCompletedWindowAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	old := domain.NewLedgerEntry(domain.KindDeposit, domain.SenderNone, "AG000001",
		decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(10))
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	recent := domain.NewLedgerEntry(domain.KindWithdrawal, "user@test", "AG000001",
		decimal.NewFromInt(100), decimal.NewFromInt(3), decimal.NewFromInt(103))
	pending := domain.NewLedgerEntry(domain.KindDeposit, domain.SenderNone, "AG000001",
		decimal.NewFromInt(20), decimal.Zero, decimal.NewFromInt(20))

	for _, e := range []*domain.LedgerEntry{old, recent, pending} {
		require.NoError(t, s.CreateEntry(ctx, e))
	}
	require.NoError(t, s.UpdateEntryStatus(ctx, old.TransactionID, domain.StatusCompleted))
	require.NoError(t, s.UpdateEntryStatus(ctx, recent.TransactionID, domain.StatusCompleted))

	from := time.Now().UTC().Add(-24 * time.Hour)
	to := time.Now().UTC()

	entries, err := s.ListCompleted(ctx, "AG000001", from, to)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, recent.TransactionID, entries[0].TransactionID)

	metrics, err := s.AggregateCompleted(ctx, "AG000001", from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.Transactions)
	assert.True(t, metrics.Commission.Equal(decimal.NewFromInt(3)))
	assert.True(t, metrics.Volume.Equal(decimal.NewFromInt(100)))
}

func TestReconciliationQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	seedAgent(t, s, "AG000001", 100)

	stale := domain.NewLedgerEntry(domain.KindWithdrawal, "user@test", "AG000001",
		decimal.NewFromInt(50), decimal.RequireFromString("1.50"), decimal.RequireFromString("51.50"))
	stale.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, s.CreateEntry(ctx, stale))

	fresh := domain.NewLedgerEntry(domain.KindDeposit, domain.SenderNone, "AG000001",
		decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(10))
	require.NoError(t, s.CreateEntry(ctx, fresh))

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	pendings, err := s.ListPendingOlderThan(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, pendings, 1)
	assert.Equal(t, stale.TransactionID, pendings[0].TransactionID)

	outside, err := s.AgentsOutsideBounds(ctx, decimal.NewFromInt(50))
	require.NoError(t, err)
	require.Len(t, outside, 1)
	assert.Equal(t, "AG000001", outside[0].Code)
}
