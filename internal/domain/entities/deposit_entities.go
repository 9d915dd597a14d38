package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepositStatus represents the status of a deposit
type DepositStatus string

const (
	DepositStatusPending         DepositStatus = "pending"
	DepositStatusAwaitingPayment DepositStatus = "awaiting_payment"
	DepositStatusCompleted       DepositStatus = "completed"
	DepositStatusFailed          DepositStatus = "failed"
)

// ValidDepositStatuses contains all valid deposit statuses
var ValidDepositStatuses = map[DepositStatus]bool{
	DepositStatusPending:         true,
	DepositStatusAwaitingPayment: true,
	DepositStatusCompleted:       true,
	DepositStatusFailed:          true,
}

// ValidDepositTransitions defines allowed status transitions.
// Transitions are monotonic: terminal states have no exits.
var ValidDepositTransitions = map[DepositStatus][]DepositStatus{
	DepositStatusPending:         {DepositStatusAwaitingPayment, DepositStatusCompleted, DepositStatusFailed},
	DepositStatusAwaitingPayment: {DepositStatusCompleted, DepositStatusFailed},
	DepositStatusCompleted:       {},
	DepositStatusFailed:          {},
}

// IsValid checks if the status is a valid deposit status
func (s DepositStatus) IsValid() bool {
	return ValidDepositStatuses[s]
}

// CanTransitionTo checks if transition to new status is allowed
func (s DepositStatus) CanTransitionTo(next DepositStatus) bool {
	for _, allowed := range ValidDepositTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s DepositStatus) IsTerminal() bool {
	return len(ValidDepositTransitions[s]) == 0 && ValidDepositStatuses[s]
}

// Deposit models an inbound funding request. The ledger core observes a
// deposit only at its transition into the completed status; ProcessedAt
// records when the core applied that transition and guards re-delivery.
type Deposit struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Currency    string          `json:"currency" db:"currency"`
	Status      DepositStatus   `json:"status" db:"status"`
	ExternalID  *string         `json:"external_id,omitempty" db:"external_id"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
