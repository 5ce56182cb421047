// Package history serves the reporting surface: completed entries for an
// agent inside a time window, plus growth versus the preceding window.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"secmomo/internal/domain"
	"secmomo/pkg/cache"
	"secmomo/pkg/errors"
	"secmomo/pkg/logger"
)

// Cache backend failures never change a computed result; they are logged and
// counted here instead of being swallowed.
var cacheFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "history_cache_failures_total",
	Help: "Redis failures while reading or writing history reports.",
})

// TimeRange selects the reporting window.
type TimeRange string

const (
	RangeDay   TimeRange = "day"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
)

// ParseTimeRange validates a query-string time range.
func ParseTimeRange(s string) (TimeRange, error) {
	switch TimeRange(s) {
	case RangeDay, RangeWeek, RangeMonth:
		return TimeRange(s), nil
	default:
		return "", errors.ErrInvalidTimeRange
	}
}

// Growth holds signed percentage change versus the preceding window,
// rounded to 2 fractional digits.
type Growth struct {
	Transactions decimal.Decimal `json:"transactions"`
	Commission   decimal.Decimal `json:"commission"`
	Volume       decimal.Decimal `json:"volume"`
}

// Report is the full reporting payload for one agent and window.
type Report struct {
	AgentCode   string                `json:"agent_code"`
	TimeRange   TimeRange             `json:"time_range"`
	From        time.Time             `json:"from"`
	To          time.Time             `json:"to"`
	Entries     []*domain.LedgerEntry `json:"transactions"`
	Current     *domain.WindowMetrics `json:"current"`
	Previous    *domain.WindowMetrics `json:"previous"`
	Growth      Growth                `json:"growth"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// Store is the subset of persistence the reporting surface reads. It never
// writes.
type Store interface {
	FindAgentByCode(ctx context.Context, code string) (*domain.Agent, error)
	ListCompleted(ctx context.Context, agentCode string, from, to time.Time) ([]*domain.LedgerEntry, error)
	AggregateCompleted(ctx context.Context, agentCode string, from, to time.Time) (*domain.WindowMetrics, error)
}

type Service struct {
	store  Store
	cache  cache.Cache
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

func NewService(st Store, c cache.Cache, ttl time.Duration, log logger.Logger) *Service {
	return &Service{
		store:  st,
		cache:  c,
		ttl:    ttl,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Report computes the windowed view for one agent. The cache is a
// read-through layer in front of the same computation; hit and miss paths
// produce identical payloads.
func (s *Service) Report(ctx context.Context, agentCode string, rng TimeRange) (*Report, error) {
	if _, err := s.store.FindAgentByCode(ctx, agentCode); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("history:%s:%s", agentCode, rng)
	if s.cache != nil {
		cached := &Report{}
		err := s.cache.Get(ctx, key, cached)
		if err == nil {
			return cached, nil
		}
		if err != cache.ErrMiss {
			cacheFailures.Inc()
			s.logger.Warn("History cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	report, err := s.compute(ctx, agentCode, rng)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, report, s.ttl); err != nil {
			cacheFailures.Inc()
			s.logger.Warn("History cache write failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return report, nil
}

func (s *Service) compute(ctx context.Context, agentCode string, rng TimeRange) (*Report, error) {
	now := s.now()
	from, prevFrom, prevTo := windowBounds(now, rng)

	entries, err := s.store.ListCompleted(ctx, agentCode, from, now)
	if err != nil {
		return nil, err
	}
	current, err := s.store.AggregateCompleted(ctx, agentCode, from, now)
	if err != nil {
		return nil, err
	}
	previous, err := s.store.AggregateCompleted(ctx, agentCode, prevFrom, prevTo)
	if err != nil {
		return nil, err
	}

	return &Report{
		AgentCode: agentCode,
		TimeRange: rng,
		From:      from,
		To:        now,
		Entries:   entries,
		Current:   current,
		Previous:  previous,
		Growth: Growth{
			Transactions: growthPercent(
				decimal.NewFromInt(current.Transactions),
				decimal.NewFromInt(previous.Transactions)),
			Commission: growthPercent(current.Commission, previous.Commission),
			Volume:     growthPercent(current.Volume, previous.Volume),
		},
		GeneratedAt: now,
	}, nil
}

// windowBounds returns the current window start and the preceding
// equal-length window. The day window anchors at midnight UTC; week and
// month are rolling 7 and 30 days.
func windowBounds(now time.Time, rng TimeRange) (from, prevFrom, prevTo time.Time) {
	switch rng {
	case RangeDay:
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return from, from.Add(-24 * time.Hour), from
	case RangeWeek:
		from = now.Add(-7 * 24 * time.Hour)
		return from, from.Add(-7 * 24 * time.Hour), from
	default:
		from = now.Add(-30 * 24 * time.Hour)
		return from, from.Add(-30 * 24 * time.Hour), from
	}
}

// growthPercent: previous 0 and current 0 is flat, previous 0 and current
// positive reads +100, otherwise the signed relative change.
func growthPercent(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(100)
	}
	return current.Sub(previous).
		Div(previous).
		Mul(decimal.NewFromInt(100)).
		RoundBank(2)
}
