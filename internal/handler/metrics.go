package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Money-movement operations by kind and outcome.",
		},
		[]string{"kind", "status"},
	)

	transactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_transaction_duration_seconds",
			Help:    "End-to-end duration of money-movement operations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	historyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_history_requests_total",
			Help: "History report requests by time range.",
		},
		[]string{"time_range"},
	)
)
