// Package errors provides standardized error types for the ledger core.
// Every failure maps to a stable code and a human-readable message;
// internal detail never leaks to callers.
package errors

import (
	"errors"
	"fmt"
)

// Standard error categories
var (
	// ErrInsufficientFunds indicates a source bucket cannot cover a debit
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrFundsLocked indicates a principal withdrawal before the lock period elapsed
	ErrFundsLocked = errors.New("funds locked")

	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrNotActive indicates the investment is no longer active
	ErrNotActive = errors.New("not active")

	// ErrOfferUnavailable indicates a referenced market offer is not open
	ErrOfferUnavailable = errors.New("offer unavailable")

	// ErrContractNotMatured indicates a contract encashment before the contract duration elapsed
	ErrContractNotMatured = errors.New("contract not matured")

	// ErrInconsistentState indicates a defensive invariant violation; it is
	// always logged for operator investigation since it points at a prior bug
	ErrInconsistentState = errors.New("inconsistent state")

	// ErrBusy indicates row-lock contention at the store boundary; retryable
	ErrBusy = errors.New("busy")

	// ErrNoElapsedDays indicates an accrual attempt with no full day elapsed
	ErrNoElapsedDays = errors.New("no elapsed days")

	// ErrNoInterest indicates an encashment with nothing to encash
	ErrNoInterest = errors.New("no interest")

	// ErrAlreadyProcessed indicates an idempotent operation was already applied
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrInvalidInput indicates invalid input was provided
	ErrInvalidInput = errors.New("invalid input")
)

// DomainError represents a domain-specific error with a stable code
type DomainError struct {
	Err       error
	Code      string
	Message   string
	Retryable bool
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target
func (e *DomainError) Is(target error) bool {
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// InsufficientFunds creates an insufficient-funds error for a bucket debit
func InsufficientFunds(bucket string) *DomainError {
	return &DomainError{
		Err:     ErrInsufficientFunds,
		Code:    "INSUFFICIENT_FUNDS",
		Message: fmt.Sprintf("insufficient %s balance", bucket),
	}
}

// FundsLocked creates a funds-locked error
func FundsLocked(lockDays int) *DomainError {
	return &DomainError{
		Err:     ErrFundsLocked,
		Code:    "FUNDS_LOCKED",
		Message: fmt.Sprintf("funds are locked for %d days from investment creation", lockDays),
	}
}

// NotFound creates a not found error
func NotFound(resource string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NotActive creates a not-active error
func NotActive(resource string) *DomainError {
	return &DomainError{
		Err:     ErrNotActive,
		Code:    "NOT_ACTIVE",
		Message: fmt.Sprintf("%s is not active", resource),
	}
}

// OfferUnavailable creates an offer-unavailable error
func OfferUnavailable() *DomainError {
	return &DomainError{
		Err:     ErrOfferUnavailable,
		Code:    "OFFER_UNAVAILABLE",
		Message: "offer is not available",
	}
}

// ContractNotMatured creates a contract-not-matured error
func ContractNotMatured(remainingDays int) *DomainError {
	return &DomainError{
		Err:     ErrContractNotMatured,
		Code:    "CONTRACT_NOT_MATURED",
		Message: fmt.Sprintf("contract payout available at maturity; %d day(s) remaining", remainingDays),
	}
}

// InconsistentState creates an invariant-violation error
func InconsistentState(message string) *DomainError {
	return &DomainError{
		Err:     ErrInconsistentState,
		Code:    "INCONSISTENT_STATE",
		Message: message,
	}
}

// Busy creates a retryable lock-contention error
func Busy(err error) *DomainError {
	return &DomainError{
		Err:       ErrBusy,
		Code:      "BUSY",
		Message:   "resource is busy, retry later",
		Retryable: true,
	}
}

// NoElapsedDays creates a no-elapsed-days accrual error
func NoElapsedDays() *DomainError {
	return &DomainError{
		Err:     ErrNoElapsedDays,
		Code:    "NO_ELAPSED_DAYS",
		Message: "no full day elapsed since last accrual",
	}
}

// NoInterest creates a nothing-to-encash error
func NoInterest() *DomainError {
	return &DomainError{
		Err:     ErrNoInterest,
		Code:    "NO_INTEREST",
		Message: "no accrued interest to encash",
	}
}

// ValidationError creates a validation error
func ValidationError(message string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    "VALIDATION_ERROR",
		Message: message,
	}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInsufficientFunds checks if an error is an insufficient funds error
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsBusy checks if an error is a retryable contention error
func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsAlreadyProcessed checks if an error marks an idempotent replay
func IsAlreadyProcessed(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed)
}

// GetErrorCode extracts the stable code from a domain error
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "UNKNOWN_ERROR"
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
