// Package reconcile is the out-of-band safety net for the external wallet
// seam. It never mutates state; it reports entries and balances a human or a
// follow-up job must look at.
package reconcile

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"secmomo/internal/domain"
	"secmomo/pkg/logger"
)

// Store is the read surface reconciliation scans.
type Store interface {
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.LedgerEntry, error)
	AgentsOutsideBounds(ctx context.Context, ceiling decimal.Decimal) ([]*domain.Agent, error)
	SumCompletedCommission(ctx context.Context) (decimal.Decimal, error)
	Revenue(ctx context.Context) (*domain.Revenue, error)
}

// Report lists everything out of order: entries stuck in pending past the
// threshold (a crash mid-withdrawal, or an upstream call that never
// resolved), agents whose balance escaped its bounds, and drift between the
// revenue accumulator and the sum of completed commissions.
type Report struct {
	GeneratedAt         time.Time             `json:"generated_at"`
	StalePending        []*domain.LedgerEntry `json:"stale_pending"`
	OutOfBoundsAgents   []*domain.Agent       `json:"out_of_bounds_agents"`
	RevenueTotal        decimal.Decimal       `json:"revenue_total"`
	CompletedCommission decimal.Decimal       `json:"completed_commission"`
	RevenueDrift        decimal.Decimal       `json:"revenue_drift"`
}

// Clean reports whether nothing needs attention.
func (r *Report) Clean() bool {
	return len(r.StalePending) == 0 &&
		len(r.OutOfBoundsAgents) == 0 &&
		r.RevenueDrift.IsZero()
}

type Service struct {
	store      Store
	ceiling    decimal.Decimal
	pendingAge time.Duration
	logger     logger.Logger
}

func NewService(st Store, ceiling decimal.Decimal, pendingAge time.Duration, log logger.Logger) *Service {
	return &Service{
		store:      st,
		ceiling:    ceiling,
		pendingAge: pendingAge,
		logger:     log,
	}
}

func (s *Service) Run(ctx context.Context) (*Report, error) {
	now := time.Now().UTC()

	stale, err := s.store.ListPendingOlderThan(ctx, now.Add(-s.pendingAge))
	if err != nil {
		return nil, err
	}
	outside, err := s.store.AgentsOutsideBounds(ctx, s.ceiling)
	if err != nil {
		return nil, err
	}
	commission, err := s.store.SumCompletedCommission(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.store.Revenue(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt:         now,
		StalePending:        stale,
		OutOfBoundsAgents:   outside,
		RevenueTotal:        revenue.TotalFees,
		CompletedCommission: commission,
		RevenueDrift:        revenue.TotalFees.Sub(commission),
	}

	if report.Clean() {
		s.logger.Info("Reconciliation clean", map[string]interface{}{
			"revenue_total": report.RevenueTotal.String(),
		})
		return report, nil
	}

	s.logger.Warn("Reconciliation found discrepancies", map[string]interface{}{
		"stale_pending":        len(report.StalePending),
		"out_of_bounds_agents": len(report.OutOfBoundsAgents),
		"revenue_drift":        report.RevenueDrift.String(),
	})
	for _, entry := range report.StalePending {
		s.logger.Warn("Stale pending entry", map[string]interface{}{
			"transaction_id": entry.TransactionID,
			"kind":           string(entry.Kind),
			"amount":         entry.GrossAmount.String(),
			"age_hours":      int(now.Sub(entry.CreatedAt).Hours()),
		})
	}
	return report, nil
}
