// Package referral implements the three-generation commission program:
// opaque invite codes, referral links with generations fixed at signup, and
// the per-deposit commission cascade paid to ancestors.
package referral

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/vestra-invest/ledger-service/internal/domain/entities"
	domainerrors "github.com/vestra-invest/ledger-service/internal/domain/errors"
	"github.com/vestra-invest/ledger-service/pkg/logger"
	"github.com/vestra-invest/ledger-service/pkg/metrics"
)

// ReferralRepository interface for referral persistence
type ReferralRepository interface {
	CreateCode(ctx context.Context, code *entities.ReferralCode) error
	GetCodeByCode(ctx context.Context, code string) (*entities.ReferralCode, error)
	GetCodeByReferrer(ctx context.Context, referrerID uuid.UUID) (*entities.ReferralCode, error)
	CreateReferral(ctx context.Context, referral *entities.Referral) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Referral, error)
	GetUsedByReferredUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*entities.Referral, error)
	ReferrerForReferral(ctx context.Context, tx *sqlx.Tx, referralID uuid.UUID) (uuid.UUID, error)
	MarkFirstDepositProcessed(ctx context.Context, tx *sqlx.Tx, referralID uuid.UUID) error
	CreateReward(ctx context.Context, tx *sqlx.Tx, reward *entities.ReferralReward) error
	ListRewardsByReferral(ctx context.Context, referralID uuid.UUID) ([]*entities.ReferralReward, error)
	CountReferralsByCode(ctx context.Context, codeID uuid.UUID) (int, error)
}

// WalletRepository interface for beneficiary wallet access
type WalletRepository interface {
	GetOrCreateForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, currency string) (*entities.Wallet, error)
}

// WalletCreditor pays a commission into a wallet inside a transaction
type WalletCreditor interface {
	CreditRewardTx(ctx context.Context, tx *sqlx.Tx, w *entities.Wallet, amount decimal.Decimal) (*entities.LedgerEntry, error)
}

// Config carries the commission schedule
type Config struct {
	// MinDeposit is the smallest deposit that triggers commissions
	MinDeposit decimal.Decimal
	// GenerationRates maps cascade distance (1-indexed) to commission rate;
	// the slice length caps how far up the tree payouts reach
	GenerationRates []decimal.Decimal
	// Currency is the wallet currency commissions are paid in
	Currency string
}

// Service manages referral codes, links and commission payouts
type Service struct {
	referralRepo ReferralRepository
	walletRepo   WalletRepository
	walletSvc    WalletCreditor
	config       Config
	logger       *logger.Logger
}

// NewService creates a new referral service
func NewService(referralRepo ReferralRepository, walletRepo WalletRepository, walletSvc WalletCreditor, config Config, logger *logger.Logger) *Service {
	return &Service{
		referralRepo: referralRepo,
		walletRepo:   walletRepo,
		walletSvc:    walletSvc,
		config:       config,
		logger:       logger,
	}
}

// codeAlphabet drops padding and keeps codes shouting-friendly
var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func generateCode() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return codeEncoding.EncodeToString(buf), nil
}

// EnsureCode returns the user's invite code, minting one on first call.
// Collisions with existing codes are retried with a fresh token.
func (s *Service) EnsureCode(ctx context.Context, userID uuid.UUID) (*entities.ReferralCode, error) {
	existing, err := s.referralRepo.GetCodeByReferrer(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !domainerrors.IsNotFound(err) {
		return nil, err
	}

	for attempt := 0; attempt < 5; attempt++ {
		token, err := generateCode()
		if err != nil {
			return nil, err
		}
		code := &entities.ReferralCode{
			Code:       token,
			ReferrerID: userID,
		}
		err = s.referralRepo.CreateCode(ctx, code)
		if err == nil {
			s.logger.Info("Referral code minted", "user_id", userID.String(), "code", token)
			return code, nil
		}
		if !domainerrors.IsAlreadyProcessed(err) {
			return nil, err
		}
		// either a token collision or a concurrent mint for the same user
		if existing, lookupErr := s.referralRepo.GetCodeByReferrer(ctx, userID); lookupErr == nil {
			return existing, nil
		}
	}

	return nil, domainerrors.InconsistentState("could not mint a unique referral code")
}

// Register links a new user to the code that brought them in. The link's
// generation is fixed here, at signup, by looking at the referrer's own
// referral: direct signups are generation 1, and depth caps at the maximum
// so payout never needs to walk the tree.
func (s *Service) Register(ctx context.Context, referredUserID uuid.UUID, codeStr string) (*entities.Referral, error) {
	code, err := s.referralRepo.GetCodeByCode(ctx, codeStr)
	if err != nil {
		return nil, err
	}
	if code.ReferrerID == referredUserID {
		return nil, domainerrors.ValidationError("cannot use your own referral code")
	}

	var parent *entities.Referral
	parentLink, err := s.referralRepo.GetUsedByReferredUser(ctx, nil, code.ReferrerID)
	if err == nil {
		parent = parentLink
	} else if !domainerrors.IsNotFound(err) {
		return nil, err
	}

	now := time.Now().UTC()
	referral := &entities.Referral{
		CodeID:         code.ID,
		ReferredUserID: referredUserID,
		Generation:     entities.NextGeneration(parent),
		Status:         entities.ReferralStatusUsed,
		UsedAt:         &now,
	}
	if parent != nil {
		referral.ParentReferralID = &parent.ID
	}

	if err := s.referralRepo.CreateReferral(ctx, referral); err != nil {
		return nil, err
	}

	s.logger.Info("Referral registered", "referred_user_id", referredUserID.String(), "code", codeStr, "generation", referral.Generation)
	return referral, nil
}

// PayoutOnDepositTx pays the commission cascade for a completed deposit,
// inside the deposit's own transaction. The cascade walks parent links fixed
// at signup: the direct referrer is distance 1, their referrer distance 2,
// and so on up to the configured schedule length. Each payout writes one
// reward row whose (referral, deposit) uniqueness is the idempotency guard,
// credits the beneficiary's available and gains buckets by the commission
// amount and appends one ledger entry.
//
// Deposits below the qualifying minimum and depositors without a referral
// pay nothing and return nil.
func (s *Service) PayoutOnDepositTx(ctx context.Context, tx *sqlx.Tx, deposit *entities.Deposit) error {
	if deposit.Amount.LessThan(s.config.MinDeposit) {
		return nil
	}

	link, err := s.referralRepo.GetUsedByReferredUser(ctx, tx, deposit.UserID)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if link.FirstDepositRewardProcessed {
		// fast path; the reward table's unique constraint remains authoritative
		return nil
	}

	current := link
	for distance := 1; distance <= len(s.config.GenerationRates) && current != nil; distance++ {
		rate := s.config.GenerationRates[distance-1]
		amount := deposit.Amount.Mul(rate).Truncate(2)

		if amount.IsPositive() {
			beneficiaryID, err := s.referralRepo.ReferrerForReferral(ctx, tx, current.ID)
			if err != nil {
				return err
			}

			w, err := s.walletRepo.GetOrCreateForUpdate(ctx, tx, beneficiaryID, s.config.Currency)
			if err != nil {
				return err
			}

			entry, err := s.walletSvc.CreditRewardTx(ctx, tx, w, amount)
			if err != nil {
				return err
			}

			reward := &entities.ReferralReward{
				ReferralID:    current.ID,
				DepositID:     deposit.ID,
				Generation:    distance,
				Amount:        amount,
				LedgerEntryID: &entry.ID,
			}
			if err := s.referralRepo.CreateReward(ctx, tx, reward); err != nil {
				return err
			}

			metrics.ReferralPayouts.WithLabelValues(strconv.Itoa(distance)).Inc()
			s.logger.Info("Referral commission paid", "beneficiary_id", beneficiaryID.String(), "deposit_id", deposit.ID.String(), "distance", distance, "amount", amount.String())
		}

		if current.ParentReferralID == nil {
			break
		}
		parent, err := s.referralRepo.GetByID(ctx, *current.ParentReferralID)
		if err != nil {
			if domainerrors.IsNotFound(err) {
				break
			}
			return err
		}
		current = parent
	}

	return s.referralRepo.MarkFirstDepositProcessed(ctx, tx, link.ID)
}

// Overview returns a user's invite code (minting it if needed) together with
// how many signups have used it.
func (s *Service) Overview(ctx context.Context, userID uuid.UUID) (*entities.ReferralCode, int, error) {
	code, err := s.EnsureCode(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.referralRepo.CountReferralsByCode(ctx, code.ID)
	if err != nil {
		return nil, 0, err
	}
	return code, count, nil
}

// RewardsForDepositor lists the commissions a user's own first deposit paid
// up the referral chain. Users without a referral get an empty list.
func (s *Service) RewardsForDepositor(ctx context.Context, userID uuid.UUID) ([]*entities.ReferralReward, error) {
	link, err := s.referralRepo.GetUsedByReferredUser(ctx, nil, userID)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			return []*entities.ReferralReward{}, nil
		}
		return nil, err
	}
	return s.referralRepo.ListRewardsByReferral(ctx, link.ID)
}
