package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPackage      = errors.New("invalid package")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNoActiveEntitlement = errors.New("no active entitlement")

	// ErrEntitlementExhausted is returned when the last candidate lost its guard to a concurrent consumer.
	ErrEntitlementExhausted = fmt.Errorf("%w: entitlement exhausted", ErrNoActiveEntitlement)

	ErrEntitlementNotFound   = errors.New("entitlement not found")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrTransactionNotPending = errors.New("transaction not pending")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrDuplicateReference    = errors.New("duplicate reference")
	ErrConcurrencyConflict   = errors.New("concurrency conflict")
	ErrLeadAlreadyAssigned   = errors.New("lead already assigned")
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrMissingReference      = errors.New("missing idempotency reference")
	ErrCacheMiss             = errors.New("cache miss")

	// ErrInvariantViolation aborts the operation; it must never be persisted or clamped.
	ErrInvariantViolation = errors.New("ledger invariant violation")
)

// ValidationError carries the offending field and wraps a taxonomy error.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidationError(err error, field, message string) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

// IsRetryable reports whether the same call may be repeated safely.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
