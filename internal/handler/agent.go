package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"secmomo/internal/domain"
	"secmomo/internal/store"
	"secmomo/pkg/validator"
)

type AgentHandler struct {
	store     store.Store
	validator *validator.Validator
	logger    Logger
}

func NewAgentHandler(st store.Store, val *validator.Validator, log Logger) *AgentHandler {
	return &AgentHandler{store: st, validator: val, logger: log}
}

type registerAgentRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Number string `json:"number" validate:"required"`
}

// Register handles POST /api/v1/agents. The agent code is system-generated;
// balances always start at zero.
func (h *AgentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	now := time.Now().UTC()
	agent := &domain.Agent{
		Code:      domain.NewAgentCode(),
		Email:     req.Email,
		Number:    req.Number,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateAgent(r.Context(), agent); err != nil {
		h.logger.Error("Agent registration failed", map[string]interface{}{
			"email": req.Email,
			"error": err.Error(),
		})
		respondServiceError(w, err)
		return
	}

	h.logger.Info("Agent registered", map[string]interface{}{
		"agent_code": agent.Code,
	})
	respondJSON(w, http.StatusCreated, agent)
}

// Get handles GET /api/v1/agents/{code}.
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	agent, err := h.store.FindAgentByCode(r.Context(), code)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}
