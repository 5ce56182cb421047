package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secmomo/internal/domain"
	"secmomo/internal/store/memory"
	"secmomo/pkg/cache"
	pkgerrors "secmomo/pkg/errors"
	"secmomo/pkg/logger"
)

type fakeCache struct {
	data map[string][]byte
	sets int
	err  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	f.sets++
	return nil
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	if f.err != nil {
		return f.err
	}
	raw, ok := f.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func seedEntry(t *testing.T, st *memory.Store, agentCode string, createdAt time.Time, gross, fee string, status domain.TransactionStatus) {
	t.Helper()
	entry := domain.NewLedgerEntry(domain.KindWithdrawal, "user@test", agentCode,
		decimal.RequireFromString(gross), decimal.RequireFromString(fee), decimal.RequireFromString(gross))
	entry.CreatedAt = createdAt
	require.NoError(t, st.CreateEntry(context.Background(), entry))
	if status.Terminal() {
		require.NoError(t, st.UpdateEntryStatus(context.Background(), entry.TransactionID, status))
	}
}

func TestParseTimeRange(t *testing.T) {
	for _, valid := range []string{"day", "week", "month"} {
		rng, err := ParseTimeRange(valid)
		require.NoError(t, err)
		assert.Equal(t, TimeRange(valid), rng)
	}
	_, err := ParseTimeRange("year")
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidTimeRange)
}

func TestGrowthPercent(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		previous string
		want     string
	}{
		{"both zero", "0", "0", "0"},
		{"from zero", "42", "0", "100"},
		{"growth", "150", "100", "50"},
		{"decline", "100", "200", "-50"},
		{"to zero", "0", "80", "-100"},
		{"fractional", "105.37", "100", "5.37"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := growthPercent(decimal.RequireFromString(tt.current), decimal.RequireFromString(tt.previous))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestReportDayWindow(t *testing.T) {
	ctx := context.Background()
	st := memory.New(decimal.NewFromInt(100000))
	require.NoError(t, st.CreateAgent(ctx, &domain.Agent{Code: "AGENTA01"}))

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// Today, counted in the current window.
	seedEntry(t, st, "AGENTA01", now.Add(-2*time.Hour), "100.00", "3.00", domain.StatusCompleted)
	// Yesterday, counted in the previous window.
	seedEntry(t, st, "AGENTA01", now.Add(-26*time.Hour), "50.00", "1.50", domain.StatusCompleted)
	// Failed today, never counted.
	seedEntry(t, st, "AGENTA01", now.Add(-time.Hour), "999.00", "29.97", domain.StatusFailed)
	// Another agent, never counted.
	require.NoError(t, st.CreateAgent(ctx, &domain.Agent{Code: "AGENTB02"}))
	seedEntry(t, st, "AGENTB02", now.Add(-time.Hour), "77.00", "2.31", domain.StatusCompleted)

	svc := NewService(st, nil, time.Minute, logger.NewNop()).
		WithClock(func() time.Time { return now })

	report, err := svc.Report(ctx, "AGENTA01", RangeDay)
	require.NoError(t, err)

	require.Len(t, report.Entries, 1)
	assert.Equal(t, int64(1), report.Current.Transactions)
	assert.True(t, report.Current.Volume.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, report.Current.Commission.Equal(decimal.RequireFromString("3.00")))

	assert.Equal(t, int64(1), report.Previous.Transactions)
	assert.True(t, report.Previous.Volume.Equal(decimal.RequireFromString("50.00")))

	assert.True(t, report.Growth.Transactions.IsZero())
	assert.True(t, report.Growth.Volume.Equal(decimal.NewFromInt(100)), "got %s", report.Growth.Volume)
	assert.True(t, report.Growth.Commission.Equal(decimal.NewFromInt(100)))
}

func TestReportWeekWindowEmptyPrevious(t *testing.T) {
	ctx := context.Background()
	st := memory.New(decimal.NewFromInt(100000))
	require.NoError(t, st.CreateAgent(ctx, &domain.Agent{Code: "AGENTA01"}))

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedEntry(t, st, "AGENTA01", now.Add(-3*24*time.Hour), "200.00", "6.00", domain.StatusCompleted)

	svc := NewService(st, nil, time.Minute, logger.NewNop()).
		WithClock(func() time.Time { return now })

	report, err := svc.Report(ctx, "AGENTA01", RangeWeek)
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.Current.Transactions)
	assert.Equal(t, int64(0), report.Previous.Transactions)
	assert.True(t, report.Growth.Transactions.Equal(decimal.NewFromInt(100)))
	assert.True(t, report.Growth.Volume.Equal(decimal.NewFromInt(100)))
}

func TestReportUnknownAgent(t *testing.T) {
	st := memory.New(decimal.NewFromInt(100000))
	svc := NewService(st, nil, time.Minute, logger.NewNop())

	_, err := svc.Report(context.Background(), "NOBODY01", RangeDay)
	assert.ErrorIs(t, err, pkgerrors.ErrAgentNotFound)
}

func TestReportCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	st := memory.New(decimal.NewFromInt(100000))
	require.NoError(t, st.CreateAgent(ctx, &domain.Agent{Code: "AGENTA01"}))

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedEntry(t, st, "AGENTA01", now.Add(-time.Hour), "100.00", "3.00", domain.StatusCompleted)

	fc := newFakeCache()
	svc := NewService(st, fc, time.Minute, logger.NewNop()).
		WithClock(func() time.Time { return now })

	first, err := svc.Report(ctx, "AGENTA01", RangeDay)
	require.NoError(t, err)
	assert.Equal(t, 1, fc.sets)

	// New data lands, but within the TTL the cached report is served.
	seedEntry(t, st, "AGENTA01", now.Add(-30*time.Minute), "500.00", "15.00", domain.StatusCompleted)

	second, err := svc.Report(ctx, "AGENTA01", RangeDay)
	require.NoError(t, err)
	assert.Equal(t, 1, fc.sets)
	assert.Equal(t, first.Current.Transactions, second.Current.Transactions)
	assert.True(t, second.Current.Volume.Equal(first.Current.Volume))
}

func TestReportCacheFailureDoesNotChangeResult(t *testing.T) {
	ctx := context.Background()
	st := memory.New(decimal.NewFromInt(100000))
	require.NoError(t, st.CreateAgent(ctx, &domain.Agent{Code: "AGENTA01"}))

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedEntry(t, st, "AGENTA01", now.Add(-time.Hour), "100.00", "3.00", domain.StatusCompleted)

	broken := newFakeCache()
	broken.err = errors.New("redis: connection refused")
	svc := NewService(st, broken, time.Minute, logger.NewNop()).
		WithClock(func() time.Time { return now })

	report, err := svc.Report(ctx, "AGENTA01", RangeDay)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Current.Transactions)
	assert.True(t, report.Current.Volume.Equal(decimal.RequireFromString("100.00")))
}
