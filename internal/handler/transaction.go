package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"secmomo/internal/domain"
	"secmomo/internal/transaction"
	"secmomo/pkg/validator"
)

type TransactionHandler struct {
	service   *transaction.Service
	validator *validator.Validator
	logger    Logger
}

func NewTransactionHandler(service *transaction.Service, val *validator.Validator, log Logger) *TransactionHandler {
	return &TransactionHandler{service: service, validator: val, logger: log}
}

// Deposit handles POST /api/v1/deposits.
func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req transaction.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	h.run(w, r, domain.KindDeposit, func() (*domain.LedgerEntry, error) {
		return h.service.Deposit(r.Context(), req)
	})
}

// Withdraw handles POST /api/v1/withdrawals.
func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req transaction.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	h.run(w, r, domain.KindWithdrawal, func() (*domain.LedgerEntry, error) {
		return h.service.Withdraw(r.Context(), req)
	})
}

// Transfer handles POST /api/v1/transfers.
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transaction.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	h.run(w, r, domain.KindTransfer, func() (*domain.LedgerEntry, error) {
		return h.service.Transfer(r.Context(), req)
	})
}

func (h *TransactionHandler) run(w http.ResponseWriter, r *http.Request, kind domain.TransactionKind, op func() (*domain.LedgerEntry, error)) {
	start := time.Now()
	entry, err := op()
	transactionDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		status := domain.StatusFailed
		if entry != nil {
			status = entry.Status
		}
		transactionsTotal.WithLabelValues(string(kind), string(status)).Inc()
		h.logger.Error("Transaction failed", map[string]interface{}{
			"kind":  string(kind),
			"error": err.Error(),
		})
		respondServiceError(w, err)
		return
	}

	transactionsTotal.WithLabelValues(string(kind), string(entry.Status)).Inc()
	respondJSON(w, http.StatusCreated, entry)
}
