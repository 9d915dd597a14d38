package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxReferralGenerations caps the depth of the referral chain. Ancestors
// beyond this depth receive nothing regardless of how deep the tree goes.
const MaxReferralGenerations = 3

// ReferralStatus represents the status of a referral link
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusUsed      ReferralStatus = "used"
	ReferralStatusCancelled ReferralStatus = "cancelled"
)

// Validate checks if the referral status is valid
func (s ReferralStatus) Validate() error {
	switch s {
	case ReferralStatusPending, ReferralStatusUsed, ReferralStatusCancelled:
		return nil
	default:
		return fmt.Errorf("invalid referral status: %s", s)
	}
}

// ReferralCode is a unique opaque token owned by a referrer, one per user.
type ReferralCode struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Code       string    `json:"code" db:"code"`
	ReferrerID uuid.UUID `json:"referrer_id" db:"referrer_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Referral links a referred user to the code that brought them in.
// Generation and parent are fixed at creation time by walking the
// referrer's own used referral, so payout never walks the tree.
type Referral struct {
	ID                          uuid.UUID      `json:"id" db:"id"`
	CodeID                      uuid.UUID      `json:"code_id" db:"code_id"`
	ReferredUserID              uuid.UUID      `json:"referred_user_id" db:"referred_user_id"`
	ParentReferralID            *uuid.UUID     `json:"parent_referral_id,omitempty" db:"parent_referral_id"`
	Generation                  int            `json:"generation" db:"generation"`
	Status                      ReferralStatus `json:"status" db:"status"`
	UsedAt                      *time.Time     `json:"used_at,omitempty" db:"used_at"`
	FirstDepositRewardProcessed bool           `json:"first_deposit_reward_processed" db:"first_deposit_reward_processed"`
	CreatedAt                   time.Time      `json:"created_at" db:"created_at"`
}

// Validate performs validation on the referral
func (r *Referral) Validate() error {
	if r.CodeID == uuid.Nil {
		return fmt.Errorf("code ID is required")
	}
	if r.ReferredUserID == uuid.Nil {
		return fmt.Errorf("referred user ID is required")
	}
	if r.Generation < 1 || r.Generation > MaxReferralGenerations {
		return fmt.Errorf("generation must be between 1 and %d", MaxReferralGenerations)
	}
	return r.Status.Validate()
}

// NextGeneration computes the generation for a new referral given the
// parent's generation, capped at MaxReferralGenerations.
func NextGeneration(parent *Referral) int {
	if parent == nil {
		return 1
	}
	gen := parent.Generation + 1
	if gen > MaxReferralGenerations {
		gen = MaxReferralGenerations
	}
	return gen
}

// ReferralReward records a commission paid for one (referral, deposit) pair.
// The unique constraint on that pair is the authoritative idempotency guard
// against duplicate deposit-completion deliveries.
type ReferralReward struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	ReferralID    uuid.UUID       `json:"referral_id" db:"referral_id"`
	DepositID     uuid.UUID       `json:"deposit_id" db:"deposit_id"`
	Generation    int             `json:"generation" db:"generation"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	LedgerEntryID *uuid.UUID      `json:"ledger_entry_id,omitempty" db:"ledger_entry_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
