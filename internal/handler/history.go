package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"secmomo/internal/history"
)

type HistoryHandler struct {
	service *history.Service
	logger  Logger
}

func NewHistoryHandler(service *history.Service, log Logger) *HistoryHandler {
	return &HistoryHandler{service: service, logger: log}
}

// Report handles GET /api/v1/agents/{code}/history?timeRange=day|week|month.
// The range defaults to day.
func (h *HistoryHandler) Report(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	raw := r.URL.Query().Get("timeRange")
	if raw == "" {
		raw = string(history.RangeDay)
	}
	rng, err := history.ParseTimeRange(raw)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	historyRequests.WithLabelValues(string(rng)).Inc()

	report, err := h.service.Report(r.Context(), code, rng)
	if err != nil {
		h.logger.Error("History report failed", map[string]interface{}{
			"agent_code": code,
			"time_range": string(rng),
			"error":      err.Error(),
		})
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
