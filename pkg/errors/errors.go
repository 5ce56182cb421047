// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Validation errors (client-caused; never mutate state).
var (
	ErrAgentNotFound          = errors.New("agent not found")
	ErrAgentAlreadyExists     = errors.New("agent already exists")
	ErrInvalidAmount          = errors.New("amount must be positive and within the transaction limit")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrBalanceCeilingExceeded = errors.New("balance ceiling exceeded")
	ErrSameSenderReceiver     = errors.New("sender and receiver cannot be the same")
	ErrBelowOperatingBalance  = errors.New("balance below minimum operating floor")
)

// Upstream errors (the user wallet service; retriable by the caller).
var (
	ErrUpstreamUnavailable = errors.New("wallet service unavailable")
	ErrUpstreamRejected    = errors.New("wallet service rejected the request")
)

// Ledger lifecycle errors.
var (
	ErrEntryNotFound          = errors.New("ledger entry not found")
	ErrInvalidStateTransition = errors.New("ledger entry is already terminal")
)

// Analytics errors.
var (
	ErrInvalidTimeRange = errors.New("invalid time range")
)

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
