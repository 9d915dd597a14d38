package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarketOfferStatus represents the status of a market offer
type MarketOfferStatus string

const (
	MarketOfferStatusOpen     MarketOfferStatus = "open"
	MarketOfferStatusAccepted MarketOfferStatus = "accepted"
	MarketOfferStatusClosed   MarketOfferStatus = "closed"
)

// MarketOffer is a fixed-duration investment contract published by the
// platform. Accepting an offer flips it to accepted in the same transaction
// that creates the investment, so an offer can be consumed at most once.
type MarketOffer struct {
	ID                   uuid.UUID         `json:"id" db:"id"`
	Title                string            `json:"title" db:"title"`
	Description          string            `json:"description" db:"description"`
	DailyRate            decimal.Decimal   `json:"daily_rate" db:"daily_rate"`
	ContractDurationDays int               `json:"contract_duration_days" db:"contract_duration_days"`
	Status               MarketOfferStatus `json:"status" db:"status"`
	ExpiresAt            *time.Time        `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
}

// IsOpen returns true if the offer can still be accepted
func (o *MarketOffer) IsOpen() bool {
	return o.Status == MarketOfferStatusOpen
}

// Investment is a user's locked principal accruing simple daily interest.
// Daily rate is a fraction (0.025 means 2.5% per day). Accrued holds
// interest already credited to gains but not yet auto-encashed.
type Investment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	WalletID      uuid.UUID       `json:"wallet_id" db:"wallet_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	DailyRate     decimal.Decimal `json:"daily_rate" db:"daily_rate"`
	LastAccrualAt *time.Time      `json:"last_accrual_at,omitempty" db:"last_accrual_at"`
	Accrued       decimal.Decimal `json:"accrued" db:"accrued"`
	OfferID       *uuid.UUID      `json:"offer_id,omitempty" db:"offer_id"`
	Active        bool            `json:"active" db:"active"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Validate performs validation on the investment
func (i *Investment) Validate() error {
	if i.UserID == uuid.Nil {
		return fmt.Errorf("user ID is required")
	}
	if i.WalletID == uuid.Nil {
		return fmt.Errorf("wallet ID is required")
	}
	if !i.Amount.IsPositive() {
		return fmt.Errorf("principal must be positive")
	}
	if i.DailyRate.IsNegative() {
		return fmt.Errorf("daily rate must not be negative")
	}
	return nil
}

// IsContract returns true if the investment is bound to a market offer
func (i *Investment) IsContract() bool {
	return i.OfferID != nil
}

// AccrualBase returns the reference time interest accrues from:
// the last accrual if one happened, otherwise creation.
func (i *Investment) AccrualBase() time.Time {
	if i.LastAccrualAt != nil {
		return *i.LastAccrualAt
	}
	return i.CreatedAt
}

// WholeDaysSinceAccrual returns the number of full days elapsed between the
// accrual base and now. Partial days count for nothing.
func (i *Investment) WholeDaysSinceAccrual(now time.Time) int {
	return wholeDays(i.AccrualBase(), now)
}

// AgeDays returns the number of full days since the investment was created.
func (i *Investment) AgeDays(now time.Time) int {
	return wholeDays(i.CreatedAt, now)
}

func wholeDays(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}

// SimpleInterest computes floor-to-cents simple interest for the given number
// of whole days. Truncation rounds toward zero so value is never manufactured
// by rounding.
func (i *Investment) SimpleInterest(days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	return i.Amount.Mul(i.DailyRate).Mul(decimal.NewFromInt(int64(days))).Truncate(2)
}
