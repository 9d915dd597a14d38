// Package funding is the single authority for applying completed deposits:
// it credits the depositor, triggers the referral cascade and refreshes the
// depositor's tier, all in one transaction.
package funding

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/vestra-invest/ledger-service/internal/domain/entities"
	domainerrors "github.com/vestra-invest/ledger-service/internal/domain/errors"
	"github.com/vestra-invest/ledger-service/internal/infrastructure/database"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

// DepositRepository interface for deposit persistence
type DepositRepository interface {
	Create(ctx context.Context, deposit *entities.Deposit) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Deposit, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.Deposit, error)
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status entities.DepositStatus) error
	MarkProcessed(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Deposit, error)
}

// WalletRepository interface for depositor wallet access
type WalletRepository interface {
	GetOrCreateForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, currency string) (*entities.Wallet, error)
}

// WalletCreditor credits a bucket inside a transaction
type WalletCreditor interface {
	CreditTx(ctx context.Context, tx *sqlx.Tx, w *entities.Wallet, bucket entities.Bucket, amount decimal.Decimal, kind entities.EntryKind) (*entities.LedgerEntry, error)
}

// ReferralPayer runs the commission cascade for a completed deposit
type ReferralPayer interface {
	PayoutOnDepositTx(ctx context.Context, tx *sqlx.Tx, deposit *entities.Deposit) error
}

// TierRecomputer refreshes a user's tier after balances change
type TierRecomputer interface {
	RecomputeTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, now time.Time) (*entities.InvestorProfile, error)
}

// Notifier publishes ledger events after commit. Implementations must be
// safe to call with a canceled context.
type Notifier interface {
	DepositCompleted(ctx context.Context, deposit *entities.Deposit)
}

// Service handles the deposit lifecycle
type Service struct {
	depositRepo DepositRepository
	walletRepo  WalletRepository
	walletSvc   WalletCreditor
	referralSvc ReferralPayer
	tierSvc     TierRecomputer
	notifier    Notifier
	txRunner    database.TxRunner
	logger      *logger.Logger
}

// NewService creates a new funding service
func NewService(depositRepo DepositRepository, walletRepo WalletRepository, walletSvc WalletCreditor, referralSvc ReferralPayer, tierSvc TierRecomputer, notifier Notifier, txRunner database.TxRunner, logger *logger.Logger) *Service {
	return &Service{
		depositRepo: depositRepo,
		walletRepo:  walletRepo,
		walletSvc:   walletSvc,
		referralSvc: referralSvc,
		tierSvc:     tierSvc,
		notifier:    notifier,
		txRunner:    txRunner,
		logger:      logger,
	}
}

// CreateDeposit records a new pending deposit
func (s *Service) CreateDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency string, externalID *string) (*entities.Deposit, error) {
	if !amount.IsPositive() {
		return nil, domainerrors.ValidationError("deposit amount must be positive")
	}
	if currency == "" {
		return nil, domainerrors.ValidationError("currency is required")
	}

	deposit := &entities.Deposit{
		UserID:     userID,
		Amount:     amount,
		Currency:   currency,
		Status:     entities.DepositStatusPending,
		ExternalID: externalID,
	}
	if err := s.depositRepo.Create(ctx, deposit); err != nil {
		return nil, err
	}

	s.logger.Info("Deposit created", "deposit_id", deposit.ID.String(), "user_id", userID.String(), "amount", amount.String())
	return deposit, nil
}

// MarkAwaitingPayment transitions a pending deposit to awaiting_payment
func (s *Service) MarkAwaitingPayment(ctx context.Context, depositID uuid.UUID) error {
	return s.txRunner.RunInTx(ctx, func(tx *sqlx.Tx) error {
		deposit, err := s.depositRepo.GetForUpdate(ctx, tx, depositID)
		if err != nil {
			return err
		}
		if !deposit.Status.CanTransitionTo(entities.DepositStatusAwaitingPayment) {
			return domainerrors.ValidationError("deposit cannot transition to awaiting_payment")
		}
		return s.depositRepo.UpdateStatus(ctx, tx, depositID, entities.DepositStatusAwaitingPayment)
	})
}

// MarkFailed transitions a non-terminal deposit to failed. No money moves.
func (s *Service) MarkFailed(ctx context.Context, depositID uuid.UUID) error {
	return s.txRunner.RunInTx(ctx, func(tx *sqlx.Tx) error {
		deposit, err := s.depositRepo.GetForUpdate(ctx, tx, depositID)
		if err != nil {
			return err
		}
		if !deposit.Status.CanTransitionTo(entities.DepositStatusFailed) {
			return domainerrors.ValidationError("deposit cannot transition to failed")
		}
		return s.depositRepo.UpdateStatus(ctx, tx, depositID, entities.DepositStatusFailed)
	})
}

// OnDepositCompleted applies a deposit's completion: status transition,
// depositor credit, referral cascade and tier refresh commit together or not
// at all. Re-deliveries are absorbed by the processed_at stamp and return
// nil without moving money again.
func (s *Service) OnDepositCompleted(ctx context.Context, depositID uuid.UUID) error {
	var applied *entities.Deposit

	err := s.txRunner.RunInTx(ctx, func(tx *sqlx.Tx) error {
		deposit, err := s.depositRepo.GetForUpdate(ctx, tx, depositID)
		if err != nil {
			return err
		}
		if deposit.ProcessedAt != nil {
			s.logger.Debug("Deposit completion re-delivered", "deposit_id", depositID.String())
			return domainerrors.ErrAlreadyProcessed
		}
		if deposit.Status != entities.DepositStatusCompleted && !deposit.Status.CanTransitionTo(entities.DepositStatusCompleted) {
			return domainerrors.ValidationError("deposit cannot transition to completed")
		}

		now := time.Now().UTC()
		if deposit.Status != entities.DepositStatusCompleted {
			if err := s.depositRepo.UpdateStatus(ctx, tx, depositID, entities.DepositStatusCompleted); err != nil {
				return err
			}
			deposit.Status = entities.DepositStatusCompleted
		}
		if err := s.depositRepo.MarkProcessed(ctx, tx, depositID, now); err != nil {
			return err
		}

		w, err := s.walletRepo.GetOrCreateForUpdate(ctx, tx, deposit.UserID, deposit.Currency)
		if err != nil {
			return err
		}
		if _, err := s.walletSvc.CreditTx(ctx, tx, w, entities.BucketAvailable, deposit.Amount, entities.EntryKindDeposit); err != nil {
			return err
		}

		if err := s.referralSvc.PayoutOnDepositTx(ctx, tx, deposit); err != nil {
			return err
		}

		if _, err := s.tierSvc.RecomputeTx(ctx, tx, deposit.UserID, now); err != nil {
			return err
		}

		applied = deposit
		return nil
	})
	if err != nil {
		// a replay is success from the caller's point of view
		if domainerrors.IsAlreadyProcessed(err) {
			return nil
		}
		return err
	}

	s.logger.Info("Deposit completed", "deposit_id", applied.ID.String(), "user_id", applied.UserID.String(), "amount", applied.Amount.String())
	if s.notifier != nil {
		s.notifier.DepositCompleted(ctx, applied)
	}
	return nil
}

// Get returns a deposit by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entities.Deposit, error) {
	return s.depositRepo.GetByID(ctx, id)
}

// ListByUser returns a user's deposits newest first
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Deposit, error) {
	return s.depositRepo.ListByUser(ctx, userID, limit, offset)
}
