// Package withdrawal handles taking realized gains off the platform: user
// requests queue for operator review, and finalization either debits the
// gains bucket (completed) or moves nothing (rejected).
package withdrawal

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

// WithdrawalRepository interface for withdrawal persistence
type WithdrawalRepository interface {
	Create(ctx context.Context, withdrawal *entities.Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Withdrawal, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.Withdrawal, error)
	Update(ctx context.Context, tx *sqlx.Tx, withdrawal *entities.Withdrawal) error
	ListPending(ctx context.Context, limit int) ([]*entities.Withdrawal, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Withdrawal, error)
}

// WalletRepository interface for wallet access
type WalletRepository interface {
	GetByUserAndCurrency(ctx context.Context, userID uuid.UUID, currency string) (*entities.Wallet, error)
	FirstByUserForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*entities.Wallet, error)
}

// WalletDebitor debits a bucket inside a transaction
type WalletDebitor interface {
	DebitTx(ctx context.Context, tx *sqlx.Tx, w *entities.Wallet, bucket entities.Bucket, amount decimal.Decimal, kind entities.EntryKind) (*entities.LedgerEntry, error)
}

// Notifier publishes withdrawal outcomes after commit
type Notifier interface {
	WithdrawalFinalized(ctx context.Context, withdrawal *entities.Withdrawal)
}

// Config carries withdrawal policy
type Config struct {
	// Currency is the wallet currency withdrawals draw from
	Currency string
}

// Service manages the withdrawal lifecycle
type Service struct {
	withdrawalRepo WithdrawalRepository
	walletRepo     WalletRepository
	walletSvc      WalletDebitor
	notifier       Notifier
	txRunner       database.TxRunner
	config         Config
	logger         *logger.Logger
}

// NewService creates a new withdrawal service
func NewService(withdrawalRepo WithdrawalRepository, walletRepo WalletRepository, walletSvc WalletDebitor, notifier Notifier, txRunner database.TxRunner, config Config, logger *logger.Logger) *Service {
	return &Service{
		withdrawalRepo: withdrawalRepo,
		walletRepo:     walletRepo,
		walletSvc:      walletSvc,
		notifier:       notifier,
		txRunner:       txRunner,
		config:         config,
		logger:         logger,
	}
}

// Request queues a withdrawal for operator review. The gains balance is
// checked here for fast feedback, but the authoritative check happens at
// finalization: the balance can change while the request waits.
func (s *Service) Request(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, bank, account string) (*entities.Withdrawal, error) {
	if !amount.IsPositive() {
		return nil, domainerrors.ValidationError("withdrawal amount must be positive")
	}

	w, err := s.walletRepo.GetByUserAndCurrency(ctx, userID, s.config.Currency)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			return nil, domainerrors.InsufficientFunds(string(entities.BucketGains))
		}
		return nil, err
	}
	if w.Gains.LessThan(amount) {
		return nil, domainerrors.InsufficientFunds(string(entities.BucketGains))
	}

	withdrawal := &entities.Withdrawal{
		UserID:  userID,
		Amount:  amount,
		Bank:    bank,
		Account: account,
		Status:  entities.WithdrawalStatusPending,
	}
	if err := s.withdrawalRepo.Create(ctx, withdrawal); err != nil {
		return nil, err
	}

	s.logger.Info("Withdrawal requested", "withdrawal_id", withdrawal.ID.String(), "user_id", userID.String(), "amount", amount.String())
	return withdrawal, nil
}

// Approve finalizes a withdrawal as completed, debiting the gains bucket
func (s *Service) Approve(ctx context.Context, withdrawalID, operatorID uuid.UUID) (*entities.Withdrawal, error) {
	return s.finalize(ctx, withdrawalID, operatorID, true, "")
}

// Reject finalizes a withdrawal as rejected. No money moves.
func (s *Service) Reject(ctx context.Context, withdrawalID, operatorID uuid.UUID, reason string) (*entities.Withdrawal, error) {
	return s.finalize(ctx, withdrawalID, operatorID, false, reason)
}

func (s *Service) finalize(ctx context.Context, withdrawalID, operatorID uuid.UUID, approve bool, reason string) (*entities.Withdrawal, error) {
	var finalized *entities.Withdrawal

	err := s.txRunner.RunInTx(ctx, func(tx *sqlx.Tx) error {
		withdrawal, err := s.withdrawalRepo.GetForUpdate(ctx, tx, withdrawalID)
		if err != nil {
			return err
		}
		if withdrawal.Status.IsTerminal() {
			return domainerrors.ErrAlreadyProcessed
		}

		now := time.Now().UTC()
		withdrawal.ProcessedBy = &operatorID
		withdrawal.ProcessedAt = &now

		if approve {
			w, err := s.walletRepo.FirstByUserForUpdate(ctx, tx, withdrawal.UserID)
			if err != nil {
				return err
			}
			if _, err := s.walletSvc.DebitTx(ctx, tx, w, entities.BucketGains, withdrawal.Amount, entities.EntryKindWithdraw); err != nil {
				return err
			}
			withdrawal.Status = entities.WithdrawalStatusCompleted
		} else {
			withdrawal.Status = entities.WithdrawalStatusRejected
			if reason != "" {
				withdrawal.RejectionReason = &reason
			}
		}

		if err := s.withdrawalRepo.Update(ctx, tx, withdrawal); err != nil {
			return err
		}

		finalized = withdrawal
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Withdrawal finalized", "withdrawal_id", finalized.ID.String(), "status", string(finalized.Status))
	if s.notifier != nil {
		s.notifier.WithdrawalFinalized(ctx, finalized)
	}
	return finalized, nil
}

// Get returns a withdrawal by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entities.Withdrawal, error) {
	return s.withdrawalRepo.GetByID(ctx, id)
}

// ListPending returns withdrawals awaiting review, oldest first
func (s *Service) ListPending(ctx context.Context, limit int) ([]*entities.Withdrawal, error) {
	return s.withdrawalRepo.ListPending(ctx, limit)
}

// ListByUser returns a user's withdrawals newest first
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Withdrawal, error) {
	return s.withdrawalRepo.ListByUser(ctx, userID, limit, offset)
}
