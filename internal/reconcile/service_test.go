package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secmomo/internal/domain"
	"secmomo/internal/store/memory"
	"secmomo/pkg/logger"
)

func TestRunFlagsRevenueDrift(t *testing.T) {
	ctx := context.Background()
	ceiling := decimal.NewFromInt(100000)
	st := memory.New(ceiling)

	require.NoError(t, st.CreateAgent(ctx, &domain.Agent{
		Code:    "AGENTA01",
		Balance: decimal.NewFromInt(500),
	}))

	// Entry completed without a matching AddFee, the exact shape of a crash
	// between external debit and fee accrual.
	entry := domain.NewLedgerEntry(domain.KindWithdrawal, "user@test", "AGENTA01",
		decimal.NewFromInt(100), decimal.NewFromInt(3), decimal.NewFromInt(103))
	require.NoError(t, st.CreateEntry(ctx, entry))
	require.NoError(t, st.UpdateEntryStatus(ctx, entry.TransactionID, domain.StatusCompleted))

	svc := NewService(st, ceiling, 24*time.Hour, logger.NewNop())
	report, err := svc.Run(ctx)
	require.NoError(t, err)

	assert.False(t, report.Clean())
	assert.True(t, report.RevenueDrift.Equal(decimal.NewFromInt(-3)))
	assert.True(t, report.CompletedCommission.Equal(decimal.NewFromInt(3)))
}

func TestRunFlagsStalePendingAndDrift(t *testing.T) {
	ctx := context.Background()
	ceiling := decimal.NewFromInt(1000)
	st := memory.New(ceiling)

	require.NoError(t, st.CreateAgent(ctx, &domain.Agent{
		Code:    "AGENTA01",
		Balance: decimal.NewFromInt(500),
	}))

	stale := domain.NewLedgerEntry(domain.KindWithdrawal, "user@test", "AGENTA01",
		decimal.NewFromInt(50), decimal.RequireFromString("1.50"), decimal.RequireFromString("51.50"))
	stale.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, st.CreateEntry(ctx, stale))

	fresh := domain.NewLedgerEntry(domain.KindDeposit, domain.SenderNone, "AGENTA01",
		decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(10))
	require.NoError(t, st.CreateEntry(ctx, fresh))

	svc := NewService(st, ceiling, 24*time.Hour, logger.NewNop())
	report, err := svc.Run(ctx)
	require.NoError(t, err)

	assert.False(t, report.Clean())
	require.Len(t, report.StalePending, 1)
	assert.Equal(t, stale.TransactionID, report.StalePending[0].TransactionID)
	assert.Empty(t, report.OutOfBoundsAgents)
	assert.True(t, report.RevenueDrift.IsZero())
}

func TestRunBalancedLedgerIsClean(t *testing.T) {
	ctx := context.Background()
	ceiling := decimal.NewFromInt(100000)
	st := memory.New(ceiling)

	svc := NewService(st, ceiling, 24*time.Hour, logger.NewNop())
	report, err := svc.Run(ctx)
	require.NoError(t, err)

	assert.True(t, report.Clean())
	assert.Empty(t, report.StalePending)
	assert.Empty(t, report.OutOfBoundsAgents)
	assert.True(t, report.RevenueDrift.IsZero())
}
