// Package handler exposes the ledger over HTTP.
package handler

import (
	"encoding/json"
	"net/http"

	"secmomo/pkg/errors"
	"secmomo/pkg/logger"
)

// Logger is the logging surface handlers need.
type Logger = logger.Logger

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondValidationErrors(w http.ResponseWriter, errs map[string]string) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":  "validation failed",
		"fields": errs,
	})
}

// statusFor maps the service error taxonomy to stable response codes.
// Internal errors are the only 500s; everything else is a caller problem or
// an upstream problem.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrAgentNotFound),
		errors.Is(err, errors.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrAgentAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errors.ErrInvalidAmount),
		errors.Is(err, errors.ErrSameSenderReceiver),
		errors.Is(err, errors.ErrInvalidTimeRange),
		errors.Is(err, errors.ErrUpstreamRejected):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrInsufficientBalance),
		errors.Is(err, errors.ErrBalanceCeilingExceeded),
		errors.Is(err, errors.ErrBelowOperatingBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}
