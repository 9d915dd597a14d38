// Package wallet implements bucket-level balance movements. Every movement
// writes exactly one ledger entry in the same transaction that adjusts the
// wallet row, so the ledger is always a complete account of balance changes.
package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/vestra-invest/ledger-service/internal/domain/entities"
	domainerrors "github.com/vestra-invest/ledger-service/internal/domain/errors"
	"github.com/vestra-invest/ledger-service/internal/infrastructure/database"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

// WalletRepository interface for wallet persistence
type WalletRepository interface {
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.Wallet, error)
	GetOrCreateForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, currency string) (*entities.Wallet, error)
	UpdateBalances(ctx context.Context, tx *sqlx.Tx, wallet *entities.Wallet) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Wallet, error)
}

// LedgerRepository interface for ledger persistence
type LedgerRepository interface {
	Append(ctx context.Context, tx *sqlx.Tx, entry *entities.LedgerEntry) error
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error)
}

// Service moves money between and across wallet buckets
type Service struct {
	walletRepo WalletRepository
	ledgerRepo LedgerRepository
	txRunner   database.TxRunner
	logger     *logger.Logger
}

// NewService creates a new wallet service
func NewService(walletRepo WalletRepository, ledgerRepo LedgerRepository, txRunner database.TxRunner, logger *logger.Logger) *Service {
	return &Service{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		txRunner:   txRunner,
		logger:     logger,
	}
}

// CreditTx adds amount to one bucket of a locked wallet and appends a ledger
// entry with a positive amount. The wallet must already be locked by the
// caller's transaction.
func (s *Service) CreditTx(ctx context.Context, tx *sqlx.Tx, wallet *entities.Wallet, bucket entities.Bucket, amount decimal.Decimal, kind entities.EntryKind) (*entities.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, domainerrors.ValidationError("credit amount must be positive")
	}
	if !bucket.IsValid() {
		return nil, domainerrors.ValidationError(fmt.Sprintf("invalid bucket %q", bucket))
	}

	wallet.SetBucketValue(bucket, wallet.BucketValue(bucket).Add(amount))
	if err := s.walletRepo.UpdateBalances(ctx, tx, wallet); err != nil {
		return nil, err
	}

	entry := &entities.LedgerEntry{
		WalletID: wallet.ID,
		Amount:   amount,
		Kind:     kind,
	}
	if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return nil, err
	}

	s.logger.Debug("Wallet credited", "wallet_id", wallet.ID.String(), "bucket", string(bucket), "amount", amount.String(), "kind", string(kind))
	return entry, nil
}

// CreditRewardTx adds amount to both the available and gains buckets of a
// locked wallet and appends a single referral ledger entry. Commission
// payouts use this shape: the reward is spendable right away and still
// counts toward earnings.
func (s *Service) CreditRewardTx(ctx context.Context, tx *sqlx.Tx, wallet *entities.Wallet, amount decimal.Decimal) (*entities.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, domainerrors.ValidationError("reward amount must be positive")
	}

	wallet.Available = wallet.Available.Add(amount)
	wallet.Gains = wallet.Gains.Add(amount)
	if err := s.walletRepo.UpdateBalances(ctx, tx, wallet); err != nil {
		return nil, err
	}

	entry := &entities.LedgerEntry{
		WalletID: wallet.ID,
		Amount:   amount,
		Kind:     entities.EntryKindReferral,
	}
	if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return nil, err
	}

	s.logger.Debug("Reward credited", "wallet_id", wallet.ID.String(), "amount", amount.String())
	return entry, nil
}

// DebitTx removes amount from one bucket of a locked wallet and appends a
// ledger entry with a negative amount. Fails without touching anything when
// the bucket cannot cover the amount.
func (s *Service) DebitTx(ctx context.Context, tx *sqlx.Tx, wallet *entities.Wallet, bucket entities.Bucket, amount decimal.Decimal, kind entities.EntryKind) (*entities.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, domainerrors.ValidationError("debit amount must be positive")
	}
	if !bucket.IsValid() {
		return nil, domainerrors.ValidationError(fmt.Sprintf("invalid bucket %q", bucket))
	}
	if wallet.BucketValue(bucket).LessThan(amount) {
		return nil, domainerrors.InsufficientFunds(string(bucket))
	}

	wallet.SetBucketValue(bucket, wallet.BucketValue(bucket).Sub(amount))
	if err := s.walletRepo.UpdateBalances(ctx, tx, wallet); err != nil {
		return nil, err
	}

	entry := &entities.LedgerEntry{
		WalletID: wallet.ID,
		Amount:   amount.Neg(),
		Kind:     kind,
	}
	if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return nil, err
	}

	s.logger.Debug("Wallet debited", "wallet_id", wallet.ID.String(), "bucket", string(bucket), "amount", amount.String(), "kind", string(kind))
	return entry, nil
}

// MoveTx shifts amount between two buckets of the same locked wallet and
// appends a single ledger entry. The moved amount is recorded positive since
// the wallet's total is unchanged.
func (s *Service) MoveTx(ctx context.Context, tx *sqlx.Tx, wallet *entities.Wallet, from, to entities.Bucket, amount decimal.Decimal, kind entities.EntryKind) (*entities.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, domainerrors.ValidationError("move amount must be positive")
	}
	if from == to {
		return nil, domainerrors.ValidationError("source and destination buckets are the same")
	}
	if !from.IsValid() || !to.IsValid() {
		return nil, domainerrors.ValidationError("invalid bucket")
	}
	if wallet.BucketValue(from).LessThan(amount) {
		return nil, domainerrors.InsufficientFunds(string(from))
	}

	wallet.SetBucketValue(from, wallet.BucketValue(from).Sub(amount))
	wallet.SetBucketValue(to, wallet.BucketValue(to).Add(amount))
	if err := s.walletRepo.UpdateBalances(ctx, tx, wallet); err != nil {
		return nil, err
	}

	entry := &entities.LedgerEntry{
		WalletID: wallet.ID,
		Amount:   amount,
		Kind:     kind,
	}
	if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return nil, err
	}

	s.logger.Debug("Bucket move", "wallet_id", wallet.ID.String(), "from", string(from), "to", string(to), "amount", amount.String())
	return entry, nil
}

// TransferBucket moves amount between two buckets of a user's wallet in its
// own transaction. Gains-to-available sweeps use this.
func (s *Service) TransferBucket(ctx context.Context, userID uuid.UUID, currency string, from, to entities.Bucket, amount decimal.Decimal) error {
	return s.txRunner.RunInTx(ctx, func(tx *sqlx.Tx) error {
		wallet, err := s.walletRepo.GetOrCreateForUpdate(ctx, tx, userID, currency)
		if err != nil {
			return err
		}
		_, err = s.MoveTx(ctx, tx, wallet, from, to, amount, entities.EntryKindTransfer)
		return err
	})
}

// Balances returns all of a user's wallets
func (s *Service) Balances(ctx context.Context, userID uuid.UUID) ([]*entities.Wallet, error) {
	return s.walletRepo.ListByUser(ctx, userID)
}

// History returns a wallet's ledger entries newest first
func (s *Service) History(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error) {
	return s.ledgerRepo.ListByWallet(ctx, walletID, limit, offset)
}
