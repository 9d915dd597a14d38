package funding

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
	domainerrors "github.com/vestra-invest/ledger-service/internal/domain/errors"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

type MockDepositRepository struct {
	mock.Mock
}

func (m *MockDepositRepository) Create(ctx context.Context, deposit *entities.Deposit) error {
	args := m.Called(ctx, deposit)
	if args.Error(0) == nil && deposit.ID == uuid.Nil {
		deposit.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockDepositRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Deposit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Deposit), args.Error(1)
}

func (m *MockDepositRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.Deposit, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Deposit), args.Error(1)
}

func (m *MockDepositRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status entities.DepositStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *MockDepositRepository) MarkProcessed(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, tx, id, at)
	return args.Error(0)
}

func (m *MockDepositRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Deposit, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Deposit), args.Error(1)
}

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetOrCreateForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, currency string) (*entities.Wallet, error) {
	args := m.Called(ctx, tx, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

type MockWalletCreditor struct {
	mock.Mock
}

func (m *MockWalletCreditor) CreditTx(ctx context.Context, tx *sqlx.Tx, w *entities.Wallet, bucket entities.Bucket, amount decimal.Decimal, kind entities.EntryKind) (*entities.LedgerEntry, error) {
	args := m.Called(ctx, tx, w, bucket, amount, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerEntry), args.Error(1)
}

type MockReferralPayer struct {
	mock.Mock
}

func (m *MockReferralPayer) PayoutOnDepositTx(ctx context.Context, tx *sqlx.Tx, deposit *entities.Deposit) error {
	args := m.Called(ctx, tx, deposit)
	return args.Error(0)
}

type MockTierRecomputer struct {
	mock.Mock
}

func (m *MockTierRecomputer) RecomputeTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, now time.Time) (*entities.InvestorProfile, error) {
	args := m.Called(ctx, tx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.InvestorProfile), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) DepositCompleted(ctx context.Context, deposit *entities.Deposit) {
	m.Called(ctx, deposit)
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	deposits *MockDepositRepository
	wallets  *MockWalletRepository
	creditor *MockWalletCreditor
	referral *MockReferralPayer
	tier     *MockTierRecomputer
	notifier *MockNotifier
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		deposits: new(MockDepositRepository),
		wallets:  new(MockWalletRepository),
		creditor: new(MockWalletCreditor),
		referral: new(MockReferralPayer),
		tier:     new(MockTierRecomputer),
		notifier: new(MockNotifier),
	}
	f.svc = NewService(f.deposits, f.wallets, f.creditor, f.referral, f.tier, f.notifier, passthroughTxRunner{}, logger.NewNop())
	return f
}

func TestCreateDeposit(t *testing.T) {
	f := newFixture()
	userID := uuid.New()

	f.deposits.On("Create", mock.Anything, mock.AnythingOfType("*entities.Deposit")).Return(nil)

	deposit, err := f.svc.CreateDeposit(context.Background(), userID, d("2500"), "USDT", nil)
	require.NoError(t, err)
	assert.Equal(t, entities.DepositStatusPending, deposit.Status)
	assert.Equal(t, userID, deposit.UserID)
}

func TestCreateDepositRejectsBadInput(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateDeposit(context.Background(), uuid.New(), decimal.Zero, "USDT", nil)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	_, err = f.svc.CreateDeposit(context.Background(), uuid.New(), d("10"), "", nil)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestOnDepositCompletedAppliesOnce(t *testing.T) {
	f := newFixture()

	deposit := &entities.Deposit{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Amount:   d("1500"),
		Currency: "USDT",
		Status:   entities.DepositStatusAwaitingPayment,
	}
	w := &entities.Wallet{ID: uuid.New(), UserID: deposit.UserID, Currency: "USDT"}

	f.deposits.On("GetForUpdate", mock.Anything, mock.Anything, deposit.ID).Return(deposit, nil)
	f.deposits.On("UpdateStatus", mock.Anything, mock.Anything, deposit.ID, entities.DepositStatusCompleted).Return(nil)
	f.deposits.On("MarkProcessed", mock.Anything, mock.Anything, deposit.ID, mock.Anything).Return(nil)
	f.wallets.On("GetOrCreateForUpdate", mock.Anything, mock.Anything, deposit.UserID, "USDT").Return(w, nil)
	f.creditor.On("CreditTx", mock.Anything, mock.Anything, w, entities.BucketAvailable, d("1500"), entities.EntryKindDeposit).
		Return(&entities.LedgerEntry{ID: uuid.New()}, nil)
	f.referral.On("PayoutOnDepositTx", mock.Anything, mock.Anything, deposit).Return(nil)
	f.tier.On("RecomputeTx", mock.Anything, mock.Anything, deposit.UserID, mock.Anything).Return(&entities.InvestorProfile{}, nil)
	f.notifier.On("DepositCompleted", mock.Anything, deposit).Return()

	err := f.svc.OnDepositCompleted(context.Background(), deposit.ID)
	require.NoError(t, err)

	f.creditor.AssertNumberOfCalls(t, "CreditTx", 1)
	f.referral.AssertCalled(t, "PayoutOnDepositTx", mock.Anything, mock.Anything, deposit)
	f.notifier.AssertCalled(t, "DepositCompleted", mock.Anything, deposit)
}

func TestOnDepositCompletedReplayIsSilent(t *testing.T) {
	f := newFixture()

	processedAt := time.Now().UTC().Add(-time.Hour)
	deposit := &entities.Deposit{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Amount:      d("1500"),
		Currency:    "USDT",
		Status:      entities.DepositStatusCompleted,
		ProcessedAt: &processedAt,
	}
	f.deposits.On("GetForUpdate", mock.Anything, mock.Anything, deposit.ID).Return(deposit, nil)

	err := f.svc.OnDepositCompleted(context.Background(), deposit.ID)
	require.NoError(t, err, "a re-delivered completion is success for the caller")

	f.creditor.AssertNotCalled(t, "CreditTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.referral.AssertNotCalled(t, "PayoutOnDepositTx", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "DepositCompleted", mock.Anything, mock.Anything)
}

func TestOnDepositCompletedRejectsFailedDeposit(t *testing.T) {
	f := newFixture()

	deposit := &entities.Deposit{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Amount: d("100"),
		Status: entities.DepositStatusFailed,
	}
	f.deposits.On("GetForUpdate", mock.Anything, mock.Anything, deposit.ID).Return(deposit, nil)

	err := f.svc.OnDepositCompleted(context.Background(), deposit.ID)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	f.creditor.AssertNotCalled(t, "CreditTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkFailedValidatesTransition(t *testing.T) {
	f := newFixture()

	deposit := &entities.Deposit{ID: uuid.New(), Status: entities.DepositStatusCompleted}
	f.deposits.On("GetForUpdate", mock.Anything, mock.Anything, deposit.ID).Return(deposit, nil)

	err := f.svc.MarkFailed(context.Background(), deposit.ID)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	f.deposits.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
