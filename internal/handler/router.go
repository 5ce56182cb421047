package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"secmomo/internal/middleware"
)

// NewRouter wires every route. The rate limiter covers only the
// money-movement endpoints and may be nil when Redis is not configured.
func NewRouter(
	tx *TransactionHandler,
	agents *AgentHandler,
	hist *HistoryHandler,
	health *HealthHandler,
	limiter *middleware.RateLimiter,
	log Logger,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)

	r.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", health.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/agents", agents.Register).Methods(http.MethodPost)
	api.HandleFunc("/agents/{code}", agents.Get).Methods(http.MethodGet)
	api.HandleFunc("/agents/{code}/history", hist.Report).Methods(http.MethodGet)

	money := api.NewRoute().Subrouter()
	if limiter != nil {
		money.Use(limiter.Limit)
	}
	money.HandleFunc("/deposits", tx.Deposit).Methods(http.MethodPost)
	money.HandleFunc("/withdrawals", tx.Withdraw).Methods(http.MethodPost)
	money.HandleFunc("/transfers", tx.Transfer).Methods(http.MethodPost)

	return r
}
