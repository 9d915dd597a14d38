package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvestorProfile carries a user's VIP tier state. Level is recomputed from
// a monetary basis via doubling thresholds; TierSince is only stamped when
// the level actually changes. DisplayBasis is persisted purely for display
// (sum of available balances) and feeds no business decision.
type InvestorProfile struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UserID       uuid.UUID       `json:"user_id" db:"user_id"`
	TierLevel    int             `json:"tier_level" db:"tier_level"`
	TierSince    *time.Time      `json:"tier_since,omitempty" db:"tier_since"`
	DisplayBasis decimal.Decimal `json:"display_basis" db:"display_basis"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}
