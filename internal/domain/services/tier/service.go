// Package tier computes VIP levels from doubling thresholds. The first
// threshold is configurable; each subsequent level requires double the
// previous one, so level n needs basis >= first * 2^(n-1).
package tier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/vestra-invest/ledger-service/internal/domain/entities"
	"github.com/vestra-invest/ledger-service/internal/infrastructure/database"
	"github.com/vestra-invest/ledger-service/pkg/logger"
	"github.com/vestra-invest/ledger-service/pkg/metrics"
)

// maxTierLevel bounds the threshold loop; with a first threshold of 25000
// level 40 already requires more money than exists.
const maxTierLevel = 64

// InvestorRepository interface for tier state persistence
type InvestorRepository interface {
	GetOrCreateForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*entities.InvestorProfile, error)
	Update(ctx context.Context, tx *sqlx.Tx, profile *entities.InvestorProfile) error
	GetByUser(ctx context.Context, userID uuid.UUID) (*entities.InvestorProfile, error)
}

// WalletRepository interface for tier basis reads
type WalletRepository interface {
	SumAvailableByUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (decimal.Decimal, error)
	SumLockedByUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (decimal.Decimal, error)
	SumPortfolioByUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (decimal.Decimal, error)
}

// Config carries tier policy
type Config struct {
	// FirstThreshold is the basis required for level 1
	FirstThreshold decimal.Decimal
	// UsePortfolio selects the full portfolio (available+locked+gains) as the
	// tier basis instead of the default locked-principal basis
	UsePortfolio bool
}

// Service recomputes investor tiers
type Service struct {
	investorRepo InvestorRepository
	walletRepo   WalletRepository
	txRunner     database.TxRunner
	config       Config
	logger       *logger.Logger
}

// NewService creates a new tier service
func NewService(investorRepo InvestorRepository, walletRepo WalletRepository, txRunner database.TxRunner, config Config, logger *logger.Logger) *Service {
	return &Service{
		investorRepo: investorRepo,
		walletRepo:   walletRepo,
		txRunner:     txRunner,
		config:       config,
		logger:       logger,
	}
}

// Level returns the tier level for a monetary basis. Level 0 means the basis
// is below the first threshold; negative bases cannot occur but map to 0.
func Level(basis, firstThreshold decimal.Decimal) int {
	if !firstThreshold.IsPositive() || basis.LessThan(firstThreshold) {
		return 0
	}

	level := 0
	threshold := firstThreshold
	two := decimal.NewFromInt(2)
	for level < maxTierLevel && basis.GreaterThanOrEqual(threshold) {
		level++
		threshold = threshold.Mul(two)
	}
	return level
}

// DailyRateForLevel derives an investment's base daily rate from a tier
// level: 2.5% per level, as a fraction.
func DailyRateForLevel(level int, baseRate decimal.Decimal) decimal.Decimal {
	if level <= 0 {
		return baseRate
	}
	return baseRate.Mul(decimal.NewFromInt(int64(level)))
}

// RecomputeTx recalculates a user's tier inside the caller's transaction.
// TierSince is stamped only when the level actually changes, so repeated
// recomputes at the same level preserve the original stamp. DisplayBasis is
// refreshed every time from the sum of available balances.
func (s *Service) RecomputeTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, now time.Time) (*entities.InvestorProfile, error) {
	profile, err := s.investorRepo.GetOrCreateForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	var basis decimal.Decimal
	if s.config.UsePortfolio {
		basis, err = s.walletRepo.SumPortfolioByUser(ctx, tx, userID)
	} else {
		basis, err = s.walletRepo.SumLockedByUser(ctx, tx, userID)
	}
	if err != nil {
		return nil, err
	}

	display, err := s.walletRepo.SumAvailableByUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	newLevel := Level(basis, s.config.FirstThreshold)
	if newLevel != profile.TierLevel {
		s.logger.Info("Tier level changed", "user_id", userID.String(), "from", profile.TierLevel, "to", newLevel, "basis", basis.String())
		profile.TierLevel = newLevel
		stamp := now
		profile.TierSince = &stamp
	}
	profile.DisplayBasis = display

	if err := s.investorRepo.Update(ctx, tx, profile); err != nil {
		return nil, err
	}

	metrics.TierRecomputes.Inc()
	return profile, nil
}

// Recompute recalculates a user's tier in its own transaction
func (s *Service) Recompute(ctx context.Context, userID uuid.UUID) (*entities.InvestorProfile, error) {
	var profile *entities.InvestorProfile
	err := s.txRunner.RunInTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		profile, err = s.RecomputeTx(ctx, tx, userID, time.Now().UTC())
		return err
	})
	return profile, err
}

// Profile returns a user's current tier state without recomputing
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*entities.InvestorProfile, error) {
	return s.investorRepo.GetByUser(ctx, userID)
}
