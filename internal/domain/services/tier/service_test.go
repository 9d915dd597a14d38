package tier

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vestra-invest/ledger-service/internal/domain/entities"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

type MockInvestorRepository struct {
	mock.Mock
}

func (m *MockInvestorRepository) GetOrCreateForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*entities.InvestorProfile, error) {
	args := m.Called(ctx, tx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.InvestorProfile), args.Error(1)
}

func (m *MockInvestorRepository) Update(ctx context.Context, tx *sqlx.Tx, profile *entities.InvestorProfile) error {
	args := m.Called(ctx, tx, profile)
	return args.Error(0)
}

func (m *MockInvestorRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*entities.InvestorProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.InvestorProfile), args.Error(1)
}

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) SumAvailableByUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletRepository) SumLockedByUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletRepository) SumPortfolioByUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return v
}

func TestLevel(t *testing.T) {
	first := decimal.RequireFromString("25000")

	tests := []struct {
		name     string
		basis    string
		expected int
	}{
		{"zero basis", "0", 0},
		{"just below first threshold", "24999.99", 0},
		{"exactly first threshold", "25000", 1},
		{"below doubling", "49999.99", 1},
		{"second threshold", "50000", 2},
		{"third threshold", "100000", 3},
		{"fourth threshold", "200000", 4},
		{"between thresholds", "150000", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Level(decimal.RequireFromString(tt.basis), first))
		})
	}
}

func TestLevelWithZeroThreshold(t *testing.T) {
	assert.Equal(t, 0, Level(decimal.RequireFromString("1000000"), decimal.Zero))
}

func TestDailyRateForLevel(t *testing.T) {
	base := decimal.RequireFromString("0.025")

	assert.True(t, DailyRateForLevel(0, base).Equal(base))
	assert.True(t, DailyRateForLevel(1, base).Equal(base))
	assert.True(t, DailyRateForLevel(2, base).Equal(decimal.RequireFromString("0.05")))
	assert.True(t, DailyRateForLevel(4, base).Equal(decimal.RequireFromString("0.1")))
}

func newService(investorRepo *MockInvestorRepository, walletRepo *MockWalletRepository, usePortfolio bool) *Service {
	return NewService(investorRepo, walletRepo, passthroughTxRunner{}, Config{
		FirstThreshold: decimal.RequireFromString("25000"),
		UsePortfolio:   usePortfolio,
	}, logger.NewNop())
}

func TestRecomputeStampsTierSinceOnlyOnChange(t *testing.T) {
	userID := uuid.New()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	investorRepo := new(MockInvestorRepository)
	walletRepo := new(MockWalletRepository)
	svc := newService(investorRepo, walletRepo, false)

	profile := &entities.InvestorProfile{ID: uuid.New(), UserID: userID, TierLevel: 0}
	investorRepo.On("GetOrCreateForUpdate", mock.Anything, mock.Anything, userID).Return(profile, nil)
	walletRepo.On("SumLockedByUser", mock.Anything, mock.Anything, userID).Return(d(t, "60000"), nil)
	walletRepo.On("SumAvailableByUser", mock.Anything, mock.Anything, userID).Return(d(t, "1500"), nil)
	investorRepo.On("Update", mock.Anything, mock.Anything, profile).Return(nil)

	got, err := svc.RecomputeTx(context.Background(), nil, userID, now)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TierLevel)
	require.NotNil(t, got.TierSince)
	assert.Equal(t, now, *got.TierSince)
	assert.True(t, got.DisplayBasis.Equal(d(t, "1500")))

	// same level again: the original stamp survives
	later := now.Add(48 * time.Hour)
	got, err = svc.RecomputeTx(context.Background(), nil, userID, later)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TierLevel)
	assert.Equal(t, now, *got.TierSince, "tier_since must not move without a level change")
}

func TestRecomputeDowngradesWhenBasisShrinks(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()

	investorRepo := new(MockInvestorRepository)
	walletRepo := new(MockWalletRepository)
	svc := newService(investorRepo, walletRepo, false)

	since := now.Add(-240 * time.Hour)
	profile := &entities.InvestorProfile{ID: uuid.New(), UserID: userID, TierLevel: 3, TierSince: &since}
	investorRepo.On("GetOrCreateForUpdate", mock.Anything, mock.Anything, userID).Return(profile, nil)
	walletRepo.On("SumLockedByUser", mock.Anything, mock.Anything, userID).Return(d(t, "30000"), nil)
	walletRepo.On("SumAvailableByUser", mock.Anything, mock.Anything, userID).Return(decimal.Zero, nil)
	investorRepo.On("Update", mock.Anything, mock.Anything, profile).Return(nil)

	got, err := svc.RecomputeTx(context.Background(), nil, userID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TierLevel)
	assert.Equal(t, now, *got.TierSince)
}

func TestRecomputeUsesPortfolioBasisWhenConfigured(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()

	investorRepo := new(MockInvestorRepository)
	walletRepo := new(MockWalletRepository)
	svc := newService(investorRepo, walletRepo, true)

	profile := &entities.InvestorProfile{ID: uuid.New(), UserID: userID, TierLevel: 0}
	investorRepo.On("GetOrCreateForUpdate", mock.Anything, mock.Anything, userID).Return(profile, nil)
	walletRepo.On("SumPortfolioByUser", mock.Anything, mock.Anything, userID).Return(d(t, "25000"), nil)
	walletRepo.On("SumAvailableByUser", mock.Anything, mock.Anything, userID).Return(d(t, "5000"), nil)
	investorRepo.On("Update", mock.Anything, mock.Anything, profile).Return(nil)

	got, err := svc.RecomputeTx(context.Background(), nil, userID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TierLevel)
	walletRepo.AssertNotCalled(t, "SumLockedByUser", mock.Anything, mock.Anything, mock.Anything)
}
