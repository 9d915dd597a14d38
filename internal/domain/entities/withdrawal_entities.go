package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalStatus represents the status of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
)

// Validate checks if the withdrawal status is valid
func (s WithdrawalStatus) Validate() error {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusProcessing,
		WithdrawalStatusCompleted, WithdrawalStatusRejected:
		return nil
	default:
		return fmt.Errorf("invalid withdrawal status: %s", s)
	}
}

// IsTerminal returns true for completed and rejected
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalStatusCompleted || s == WithdrawalStatusRejected
}

// Withdrawal is a user's request to take funds out of the platform.
// Completion debits the gains bucket; rejection debits nothing.
type Withdrawal struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	UserID          uuid.UUID        `json:"user_id" db:"user_id"`
	Amount          decimal.Decimal  `json:"amount" db:"amount"`
	Bank            string           `json:"bank" db:"bank"`
	Account         string           `json:"account" db:"account"`
	Status          WithdrawalStatus `json:"status" db:"status"`
	RejectionReason *string          `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ProcessedBy     *uuid.UUID       `json:"processed_by,omitempty" db:"processed_by"`
	ProcessedAt     *time.Time       `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// Validate performs validation on the withdrawal
func (w *Withdrawal) Validate() error {
	if w.UserID == uuid.Nil {
		return fmt.Errorf("user ID is required")
	}
	if !w.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	if w.Account == "" {
		return fmt.Errorf("destination account is required")
	}
	return w.Status.Validate()
}
