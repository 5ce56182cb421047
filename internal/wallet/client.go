// Package wallet is the HTTP client for the external user wallet service.
// The only call the ledger makes is the withdrawal debit: charge the end
// user's wallet before the agent's float is credited.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"secmomo/pkg/config"
	"secmomo/pkg/errors"
	"secmomo/pkg/logger"
)

// DebitRequest is the wire payload of the wallet withdrawal endpoint.
// Amount travels as a fixed two-decimal string, never a float.
type DebitRequest struct {
	Email     string `json:"email"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

type debitResponse struct {
	Success bool   `json:"success"`
	TransID string `json:"trans_id"`
	Message string `json:"message"`
}

// DebitResult carries the upstream confirmation of a successful debit.
type DebitResult struct {
	UpstreamRef string
	Message     string
}

type Client struct {
	httpClient *http.Client
	url        string
	logger     logger.Logger
}

func NewClient(cfg config.WalletConfig, log logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		url:        cfg.WithdrawURL,
		logger:     log,
	}
}

// Debit charges the user's wallet for a withdrawal. The outcome splits three
// ways: nil on a confirmed debit, ErrUpstreamRejected when the wallet service
// answered and declined, ErrUpstreamUnavailable when no usable answer arrived.
// On ErrUpstreamUnavailable the upstream outcome is unknown; reconciliation
// cross-checks those entries against the wallet service's own log.
func (c *Client) Debit(ctx context.Context, email string, amount decimal.Decimal, reference string) (*DebitResult, error) {
	payload, err := json.Marshal(DebitRequest{
		Email:     email,
		Amount:    amount.StringFixed(2),
		Reference: reference,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode wallet debit request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build wallet debit request")
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Wallet debit request failed", map[string]interface{}{
			"reference": reference,
			"error":     err.Error(),
		})
		return nil, errors.Wrap(errors.ErrUpstreamUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Wallet debit returned non-200", map[string]interface{}{
			"reference": reference,
			"status":    resp.StatusCode,
		})
		return nil, errors.ErrUpstreamUnavailable
	}

	var body debitResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.Error("Wallet debit response unreadable", map[string]interface{}{
			"reference": reference,
			"error":     err.Error(),
		})
		return nil, errors.ErrUpstreamUnavailable
	}

	if !body.Success && body.TransID == "" {
		c.logger.Warn("Wallet debit rejected", map[string]interface{}{
			"reference": reference,
			"message":   body.Message,
		})
		return nil, errors.ErrUpstreamRejected
	}

	c.logger.Info("Wallet debit confirmed", map[string]interface{}{
		"reference":    reference,
		"upstream_ref": body.TransID,
		"duration_ms":  time.Since(started).Milliseconds(),
	})
	return &DebitResult{UpstreamRef: body.TransID, Message: body.Message}, nil
}
