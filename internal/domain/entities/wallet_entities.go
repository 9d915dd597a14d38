package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bucket identifies one of a wallet's four balance fields.
type Bucket string

const (
	BucketAvailable Bucket = "available" // spendable balance
	BucketPending   Bucket = "pending"   // reserved for future holds, unused by current flows
	BucketGains     Bucket = "gains"     // realized interest and commission
	BucketLocked    Bucket = "locked"    // principal committed to investments
)

// Validate checks if the bucket is valid
func (b Bucket) Validate() error {
	switch b {
	case BucketAvailable, BucketPending, BucketGains, BucketLocked:
		return nil
	default:
		return fmt.Errorf("invalid bucket: %s", b)
	}
}

// IsValid checks if the bucket is valid
func (b Bucket) IsValid() bool {
	return b.Validate() == nil
}

// Wallet is a per-user, per-currency balance record with four buckets.
// Wallets are created lazily on first credit and never deleted.
// Invariant: every bucket stays non-negative, two-decimal fixed-point.
type Wallet struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	Currency  string          `json:"currency" db:"currency"`
	Available decimal.Decimal `json:"available" db:"available"`
	Pending   decimal.Decimal `json:"pending" db:"pending"`
	Gains     decimal.Decimal `json:"gains" db:"gains"`
	Locked    decimal.Decimal `json:"locked" db:"locked"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate performs validation on the wallet
func (w *Wallet) Validate() error {
	if w.UserID == uuid.Nil {
		return fmt.Errorf("user ID is required")
	}
	if w.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	for _, b := range []Bucket{BucketAvailable, BucketPending, BucketGains, BucketLocked} {
		if w.BucketValue(b).IsNegative() {
			return fmt.Errorf("bucket %s is negative", b)
		}
	}
	return nil
}

// BucketValue returns the current balance of the given bucket.
func (w *Wallet) BucketValue(b Bucket) decimal.Decimal {
	switch b {
	case BucketAvailable:
		return w.Available
	case BucketPending:
		return w.Pending
	case BucketGains:
		return w.Gains
	case BucketLocked:
		return w.Locked
	default:
		return decimal.Zero
	}
}

// SetBucketValue overwrites the balance of the given bucket.
func (w *Wallet) SetBucketValue(b Bucket, v decimal.Decimal) {
	switch b {
	case BucketAvailable:
		w.Available = v
	case BucketPending:
		w.Pending = v
	case BucketGains:
		w.Gains = v
	case BucketLocked:
		w.Locked = v
	}
}

// Portfolio returns available + locked + gains, the full-portfolio tier basis.
func (w *Wallet) Portfolio() decimal.Decimal {
	return w.Available.Add(w.Locked).Add(w.Gains)
}
