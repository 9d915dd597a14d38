package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger entry by the operation that produced it.
type EntryKind string

const (
	EntryKindDeposit  EntryKind = "deposit"
	EntryKindWithdraw EntryKind = "withdraw"
	EntryKindTrade    EntryKind = "trade"
	EntryKindReferral EntryKind = "referral"
	EntryKindInterest EntryKind = "interest"
	EntryKindEncash   EntryKind = "encash"
	EntryKindTransfer EntryKind = "transfer"
)

// Validate checks if the entry kind is valid
func (k EntryKind) Validate() error {
	switch k {
	case EntryKindDeposit, EntryKindWithdraw, EntryKindTrade, EntryKindReferral,
		EntryKindInterest, EntryKindEncash, EntryKindTransfer:
		return nil
	default:
		return fmt.Errorf("invalid entry kind: %s", k)
	}
}

// IsValid checks if the entry kind is valid
func (k EntryKind) IsValid() bool {
	return k.Validate() == nil
}

// LedgerEntry is an immutable record of a single balance-affecting operation.
// Entries are append-only: they are never mutated or deleted, and one entry
// is written per operation, never reused for multiple semantic effects.
// Credits carry a positive amount, debits a negative one; bucket moves
// carry the moved amount as positive since the wallet total is unchanged.
type LedgerEntry struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	WalletID  uuid.UUID       `json:"wallet_id" db:"wallet_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Kind      EntryKind       `json:"kind" db:"kind"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Validate performs validation on the ledger entry
func (e *LedgerEntry) Validate() error {
	if e.WalletID == uuid.Nil {
		return fmt.Errorf("wallet ID is required")
	}
	if e.Amount.IsZero() {
		return fmt.Errorf("amount must be non-zero")
	}
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	return nil
}
