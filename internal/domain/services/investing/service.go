// Package investing implements locked-principal investments: creation from
// the available bucket, daily simple-interest accrual into gains, encashment
// of accrued interest, contract maturity payouts and principal withdrawal
// after the lock period.
package investing

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
	"github.com/vestra-invest/ledger-service/pkg/metrics"
)

// InvestmentRepository interface for investment persistence
type InvestmentRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, investment *entities.Investment) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Investment, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.Investment, error)
	Update(ctx context.Context, tx *sqlx.Tx, investment *entities.Investment) error
	ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*entities.Investment, error)
	GetOfferForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.MarketOffer, error)
	UpdateOfferStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status entities.MarketOfferStatus) error
	ListOpenOffers(ctx context.Context) ([]*entities.MarketOffer, error)
}

// WalletRepository interface for wallet lookups
type WalletRepository interface {
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.Wallet, error)
	GetOrCreateForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, currency string) (*entities.Wallet, error)
}

// WalletMover moves funds between buckets inside a transaction
type WalletMover interface {
	CreditTx(ctx context.Context, tx *sqlx.Tx, w *entities.Wallet, bucket entities.Bucket, amount decimal.Decimal, kind entities.EntryKind) (*entities.LedgerEntry, error)
	MoveTx(ctx context.Context, tx *sqlx.Tx, w *entities.Wallet, from, to entities.Bucket, amount decimal.Decimal, kind entities.EntryKind) (*entities.LedgerEntry, error)
}

// TierRecomputer refreshes a user's tier after locked principal changes
type TierRecomputer interface {
	RecomputeTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, now time.Time) (*entities.InvestorProfile, error)
	Profile(ctx context.Context, userID uuid.UUID) (*entities.InvestorProfile, error)
}

// Config carries investment policy
type Config struct {
	// LockDays is how long principal stays locked after creation
	LockDays int
	// BaseDailyRate is the daily rate fraction for level-0 investors
	BaseDailyRate decimal.Decimal
	// DefaultCurrency is the wallet currency investments draw from
	DefaultCurrency string
}

// Service manages the investment lifecycle
type Service struct {
	investmentRepo InvestmentRepository
	walletRepo     WalletRepository
	walletSvc      WalletMover
	tierSvc        TierRecomputer
	txRunner       database.TxRunner
	config         Config
	logger         *logger.Logger
}

// NewService creates a new investing service
func NewService(investmentRepo InvestmentRepository, walletRepo WalletRepository, walletSvc WalletMover, tierSvc TierRecomputer, txRunner database.TxRunner, config Config, logger *logger.Logger) *Service {
	return &Service{
		investmentRepo: investmentRepo,
		walletRepo:     walletRepo,
		walletSvc:      walletSvc,
		tierSvc:        tierSvc,
		txRunner:       txRunner,
		config:         config,
		logger:         logger,
	}
}

// dailyRateForLevel mirrors the tier-derived rate schedule: the base rate
// scaled by tier level, floor at the base rate for level 0.
func (s *Service) dailyRateForLevel(level int) decimal.Decimal {
	if level <= 0 {
		return s.config.BaseDailyRate
	}
	return s.config.BaseDailyRate.Mul(decimal.NewFromInt(int64(level)))
}

// Create opens an investment funded from the available bucket. Without an
// offer the daily rate derives from the user's tier; with an offer the
// contract's rate applies and the offer is consumed atomically.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, offerID *uuid.UUID) (*entities.Investment, error) {
	if !amount.IsPositive() {
		return nil, domainerrors.ValidationError("investment amount must be positive")
	}

	var investment *entities.Investment
	err := s.txRunner.RunInTx(ctx, func(tx *sqlx.Tx) error {
		rate := s.config.BaseDailyRate
		if offerID != nil {
			offer, err := s.investmentRepo.GetOfferForUpdate(ctx, tx, *offerID)
			if err != nil {
				return err
			}
			if !offer.IsOpen() || (offer.ExpiresAt != nil && offer.ExpiresAt.Before(time.Now().UTC())) {
				return domainerrors.OfferUnavailable()
			}
			rate = offer.DailyRate
			if err := s.investmentRepo.UpdateOfferStatus(ctx, tx, offer.ID, entities.MarketOfferStatusAccepted); err != nil {
				return err
			}
		} else if s.tierSvc != nil {
			profile, err := s.tierSvc.Profile(ctx, userID)
			if err == nil {
				rate = s.dailyRateForLevel(profile.TierLevel)
			} else if !domainerrors.IsNotFound(err) {
				return err
			}
		}

		w, err := s.walletRepo.GetOrCreateForUpdate(ctx, tx, userID, s.config.DefaultCurrency)
		if err != nil {
			return err
		}

		if _, err := s.walletSvc.MoveTx(ctx, tx, w, entities.BucketAvailable, entities.BucketLocked, amount, entities.EntryKindTrade); err != nil {
			return err
		}

		investment = &entities.Investment{
			UserID:    userID,
			WalletID:  w.ID,
			Amount:    amount,
			DailyRate: rate,
			Accrued:   decimal.Zero,
			OfferID:   offerID,
			Active:    true,
		}
		if err := s.investmentRepo.Create(ctx, tx, investment); err != nil {
			return err
		}

		if _, err := s.tierSvc.RecomputeTx(ctx, tx, userID, time.Now().UTC()); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Investment created", "investment_id", investment.ID.String(), "user_id", userID.String(), "amount", amount.String(), "daily_rate", investment.DailyRate.String())
	return investment, nil
}

// Accrue credits simple interest for whole days elapsed since the last
// accrual into the gains bucket. Partial days accrue nothing and leave the
// accrual base untouched. Contract investments pay out only at maturity and
// never pass through here.
func (s *Service) Accrue(ctx context.Context, investmentID uuid.UUID, now time.Time) (decimal.Decimal, error) {
	var interest decimal.Decimal

	err := s.txRunner.RunInTx(ctx, func(tx *sqlx.Tx) error {
		// lock order: investment before wallet, everywhere
		investment, err := s.investmentRepo.GetForUpdate(ctx, tx, investmentID)
		if err != nil {
			return err
		}
		if !investment.Active {
			return domainerrors.NotActive("investment")
		}
		if investment.IsContract() {
			return domainerrors.ValidationError("contract investments pay out at maturity")
		}

		days := investment.WholeDaysSinceAccrual(now)
		if days <= 0 {
			return domainerrors.NoElapsedDays()
		}

		interest = investment.SimpleInterest(days)
		if interest.IsPositive() {
			w, err := s.walletRepo.GetForUpdate(ctx, tx, investment.WalletID)
			if err != nil {
				return err
			}
			if _, err := s.walletSvc.CreditTx(ctx, tx, w, entities.BucketGains, interest, entities.EntryKindInterest); err != nil {
				return err
			}
			investment.Accrued = investment.Accrued.Add(interest)
		}

		stamp := now
		investment.LastAccrualAt = &stamp
		return s.investmentRepo.Update(ctx, tx, investment)
	})
	if err != nil {
		return decimal.Zero, err
	}

	return interest, nil
}

// EncashAccrued sweeps an investment's accrued interest from gains to
// available and resets the accrued counter. Eligible only once a full day has
// passed since the last accrual; the sweep advances the accrual base the same
// way accrual does. Used both by users and by the batch worker once accrued
// interest has aged past the encash window.
func (s *Service) EncashAccrued(ctx context.Context, investmentID uuid.UUID, now time.Time) (decimal.Decimal, error) {
	var swept decimal.Decimal

	err := s.txRunner.RunInTx(ctx, func(tx *sqlx.Tx) error {
		investment, err := s.investmentRepo.GetForUpdate(ctx, tx, investmentID)
		if err != nil {
			return err
		}
		if !investment.Active {
			return domainerrors.NotActive("investment")
		}
		if investment.WholeDaysSinceAccrual(now) <= 0 {
			return domainerrors.NoElapsedDays()
		}
		if !investment.Accrued.IsPositive() {
			return domainerrors.NoInterest()
		}

		w, err := s.walletRepo.GetForUpdate(ctx, tx, investment.WalletID)
		if err != nil {
			return err
		}

		swept = investment.Accrued
		if _, err := s.walletSvc.MoveTx(ctx, tx, w, entities.BucketGains, entities.BucketAvailable, swept, entities.EntryKindEncash); err != nil {
			return err
		}

		investment.Accrued = decimal.Zero
		stamp := now
		investment.LastAccrualAt = &stamp
		return s.investmentRepo.Update(ctx, tx, investment)
	})
	if err != nil {
		return decimal.Zero, err
	}

	metrics.EncashmentsProcessed.Inc()
	s.logger.Info("Accrued interest encashed", "investment_id", investmentID.String(), "amount", swept.String())
	return swept, nil
}

// EncashContract pays out a matured contract investment: the full simple
// interest for the contract duration credits gains, principal returns to
// available and the investment deactivates. Before maturity nothing moves.
func (s *Service) EncashContract(ctx context.Context, investmentID uuid.UUID, now time.Time) (decimal.Decimal, error) {
	var payout decimal.Decimal

	err := s.txRunner.RunInTx(ctx, func(tx *sqlx.Tx) error {
		investment, err := s.investmentRepo.GetForUpdate(ctx, tx, investmentID)
		if err != nil {
			return err
		}
		if !investment.Active {
			return domainerrors.NotActive("investment")
		}
		if !investment.IsContract() {
			return domainerrors.ValidationError("investment is not a contract")
		}

		offer, err := s.investmentRepo.GetOfferForUpdate(ctx, tx, *investment.OfferID)
		if err != nil {
			return err
		}

		age := investment.AgeDays(now)
		if age < offer.ContractDurationDays {
			return domainerrors.ContractNotMatured(offer.ContractDurationDays - age)
		}

		payout = investment.SimpleInterest(offer.ContractDurationDays)

		w, err := s.walletRepo.GetForUpdate(ctx, tx, investment.WalletID)
		if err != nil {
			return err
		}

		if payout.IsPositive() {
			if _, err := s.walletSvc.CreditTx(ctx, tx, w, entities.BucketGains, payout, entities.EntryKindEncash); err != nil {
				return err
			}
		}
		if _, err := s.walletSvc.MoveTx(ctx, tx, w, entities.BucketLocked, entities.BucketAvailable, investment.Amount, entities.EntryKindTrade); err != nil {
			return err
		}

		investment.Active = false
		if err := s.investmentRepo.Update(ctx, tx, investment); err != nil {
			return err
		}
		if err := s.investmentRepo.UpdateOfferStatus(ctx, tx, offer.ID, entities.MarketOfferStatusClosed); err != nil {
			return err
		}

		if _, err := s.tierSvc.RecomputeTx(ctx, tx, investment.UserID, now); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	metrics.EncashmentsProcessed.Inc()
	s.logger.Info("Contract encashed", "investment_id", investmentID.String(), "payout", payout.String())
	return payout, nil
}

// WithdrawPrincipal returns locked principal to available once the lock
// period has elapsed, sweeps any remaining accrued interest and deactivates
// the investment. A locked bucket that cannot cover the principal indicates
// a prior bug and fails loudly instead of going negative.
func (s *Service) WithdrawPrincipal(ctx context.Context, investmentID uuid.UUID, now time.Time) error {
	err := s.txRunner.RunInTx(ctx, func(tx *sqlx.Tx) error {
		investment, err := s.investmentRepo.GetForUpdate(ctx, tx, investmentID)
		if err != nil {
			return err
		}
		if !investment.Active {
			return domainerrors.NotActive("investment")
		}
		if investment.IsContract() {
			return domainerrors.ValidationError("contract principal returns at maturity")
		}
		if investment.AgeDays(now) < s.config.LockDays {
			return domainerrors.FundsLocked(s.config.LockDays)
		}

		w, err := s.walletRepo.GetForUpdate(ctx, tx, investment.WalletID)
		if err != nil {
			return err
		}
		if w.Locked.LessThan(investment.Amount) {
			s.logger.Error("Locked bucket below principal", "investment_id", investment.ID.String(), "locked", w.Locked.String(), "principal", investment.Amount.String())
			return domainerrors.InconsistentState("locked balance below investment principal")
		}

		if _, err := s.walletSvc.MoveTx(ctx, tx, w, entities.BucketLocked, entities.BucketAvailable, investment.Amount, entities.EntryKindWithdraw); err != nil {
			return err
		}

		if investment.Accrued.IsPositive() {
			if _, err := s.walletSvc.MoveTx(ctx, tx, w, entities.BucketGains, entities.BucketAvailable, investment.Accrued, entities.EntryKindEncash); err != nil {
				return err
			}
			investment.Accrued = decimal.Zero
		}

		investment.Active = false
		if err := s.investmentRepo.Update(ctx, tx, investment); err != nil {
			return err
		}

		if _, err := s.tierSvc.RecomputeTx(ctx, tx, investment.UserID, now); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Principal withdrawn", "investment_id", investmentID.String())
	return nil
}

// Get returns an investment by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entities.Investment, error) {
	return s.investmentRepo.GetByID(ctx, id)
}

// ListByUser returns a user's investments
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*entities.Investment, error) {
	return s.investmentRepo.ListByUser(ctx, userID, activeOnly)
}

// ListOpenOffers returns offers currently accepting investments
func (s *Service) ListOpenOffers(ctx context.Context) ([]*entities.MarketOffer, error) {
	return s.investmentRepo.ListOpenOffers(ctx)
}
