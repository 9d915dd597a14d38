package withdrawal

import (
	"context"
	"testing"

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

type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, withdrawal *entities.Withdrawal) error {
	args := m.Called(ctx, withdrawal)
	if args.Error(0) == nil && withdrawal.ID == uuid.Nil {
		withdrawal.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.Withdrawal, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) Update(ctx context.Context, tx *sqlx.Tx, withdrawal *entities.Withdrawal) error {
	args := m.Called(ctx, tx, withdrawal)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) ListPending(ctx context.Context, limit int) ([]*entities.Withdrawal, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Withdrawal, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Withdrawal), args.Error(1)
}

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetByUserAndCurrency(ctx context.Context, userID uuid.UUID, currency string) (*entities.Wallet, error) {
	args := m.Called(ctx, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *MockWalletRepository) FirstByUserForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*entities.Wallet, error) {
	args := m.Called(ctx, tx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

type MockWalletDebitor struct {
	mock.Mock
}

func (m *MockWalletDebitor) DebitTx(ctx context.Context, tx *sqlx.Tx, w *entities.Wallet, bucket entities.Bucket, amount decimal.Decimal, kind entities.EntryKind) (*entities.LedgerEntry, error) {
	args := m.Called(ctx, tx, w, bucket, amount, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerEntry), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) WithdrawalFinalized(ctx context.Context, withdrawal *entities.Withdrawal) {
	m.Called(ctx, withdrawal)
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	repo       *MockWithdrawalRepository
	walletRepo *MockWalletRepository
	debitor    *MockWalletDebitor
	notifier   *MockNotifier
	svc        *Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:       new(MockWithdrawalRepository),
		walletRepo: new(MockWalletRepository),
		debitor:    new(MockWalletDebitor),
		notifier:   new(MockNotifier),
	}
	f.svc = NewService(f.repo, f.walletRepo, f.debitor, f.notifier, passthroughTxRunner{}, Config{Currency: "USDT"}, logger.NewNop())
	return f
}

func TestRequestQueuesPendingWithdrawal(t *testing.T) {
	f := newFixture()
	userID := uuid.New()

	w := &entities.Wallet{ID: uuid.New(), UserID: userID, Currency: "USDT", Gains: d("200")}
	f.walletRepo.On("GetByUserAndCurrency", mock.Anything, userID, "USDT").Return(w, nil)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Withdrawal")).Return(nil)

	withdrawal, err := f.svc.Request(context.Background(), userID, d("150"), "First Bank", "0123456789")
	require.NoError(t, err)
	assert.Equal(t, entities.WithdrawalStatusPending, withdrawal.Status)
	assert.True(t, withdrawal.Amount.Equal(d("150")))
}

func TestRequestRejectsMoreThanGains(t *testing.T) {
	f := newFixture()
	userID := uuid.New()

	w := &entities.Wallet{ID: uuid.New(), UserID: userID, Currency: "USDT", Available: d("5000"), Gains: d("10")}
	f.walletRepo.On("GetByUserAndCurrency", mock.Anything, userID, "USDT").Return(w, nil)

	_, err := f.svc.Request(context.Background(), userID, d("10.01"), "First Bank", "0123456789")
	assert.ErrorIs(t, err, domainerrors.ErrInsufficientFunds, "only gains are withdrawable")
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRequestWithoutWallet(t *testing.T) {
	f := newFixture()
	userID := uuid.New()

	f.walletRepo.On("GetByUserAndCurrency", mock.Anything, userID, "USDT").Return(nil, domainerrors.NotFound("wallet"))

	_, err := f.svc.Request(context.Background(), userID, d("10"), "First Bank", "0123456789")
	assert.ErrorIs(t, err, domainerrors.ErrInsufficientFunds)
}

func TestApproveDebitsGains(t *testing.T) {
	f := newFixture()
	operatorID := uuid.New()

	withdrawal := &entities.Withdrawal{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Amount: d("80"),
		Status: entities.WithdrawalStatusPending,
	}
	w := &entities.Wallet{ID: uuid.New(), UserID: withdrawal.UserID, Currency: "USDT", Gains: d("100")}

	f.repo.On("GetForUpdate", mock.Anything, mock.Anything, withdrawal.ID).Return(withdrawal, nil)
	f.walletRepo.On("FirstByUserForUpdate", mock.Anything, mock.Anything, withdrawal.UserID).Return(w, nil)
	f.debitor.On("DebitTx", mock.Anything, mock.Anything, w, entities.BucketGains, d("80"), entities.EntryKindWithdraw).
		Return(&entities.LedgerEntry{ID: uuid.New()}, nil)
	f.repo.On("Update", mock.Anything, mock.Anything, withdrawal).Return(nil)
	f.notifier.On("WithdrawalFinalized", mock.Anything, withdrawal).Return()

	got, err := f.svc.Approve(context.Background(), withdrawal.ID, operatorID)
	require.NoError(t, err)

	assert.Equal(t, entities.WithdrawalStatusCompleted, got.Status)
	require.NotNil(t, got.ProcessedBy)
	assert.Equal(t, operatorID, *got.ProcessedBy)
	require.NotNil(t, got.ProcessedAt)
	f.notifier.AssertCalled(t, "WithdrawalFinalized", mock.Anything, withdrawal)
}

func TestRejectMovesNothing(t *testing.T) {
	f := newFixture()
	operatorID := uuid.New()

	withdrawal := &entities.Withdrawal{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Amount: d("80"),
		Status: entities.WithdrawalStatusPending,
	}
	f.repo.On("GetForUpdate", mock.Anything, mock.Anything, withdrawal.ID).Return(withdrawal, nil)
	f.repo.On("Update", mock.Anything, mock.Anything, withdrawal).Return(nil)
	f.notifier.On("WithdrawalFinalized", mock.Anything, withdrawal).Return()

	got, err := f.svc.Reject(context.Background(), withdrawal.ID, operatorID, "account name mismatch")
	require.NoError(t, err)

	assert.Equal(t, entities.WithdrawalStatusRejected, got.Status)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, "account name mismatch", *got.RejectionReason)
	f.debitor.AssertNotCalled(t, "DebitTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizeTerminalWithdrawalIsRejected(t *testing.T) {
	f := newFixture()

	withdrawal := &entities.Withdrawal{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Amount: d("80"),
		Status: entities.WithdrawalStatusCompleted,
	}
	f.repo.On("GetForUpdate", mock.Anything, mock.Anything, withdrawal.ID).Return(withdrawal, nil)

	_, err := f.svc.Approve(context.Background(), withdrawal.ID, uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyProcessed)

	_, err = f.svc.Reject(context.Background(), withdrawal.ID, uuid.New(), "late")
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyProcessed)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestInsufficientGainsAtFinalization(t *testing.T) {
	f := newFixture()

	withdrawal := &entities.Withdrawal{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Amount: d("80"),
		Status: entities.WithdrawalStatusPending,
	}
	w := &entities.Wallet{ID: uuid.New(), UserID: withdrawal.UserID, Currency: "USDT", Gains: d("50")}

	f.repo.On("GetForUpdate", mock.Anything, mock.Anything, withdrawal.ID).Return(withdrawal, nil)
	f.walletRepo.On("FirstByUserForUpdate", mock.Anything, mock.Anything, withdrawal.UserID).Return(w, nil)
	f.debitor.On("DebitTx", mock.Anything, mock.Anything, w, entities.BucketGains, d("80"), entities.EntryKindWithdraw).
		Return(nil, domainerrors.InsufficientFunds("gains"))

	_, err := f.svc.Approve(context.Background(), withdrawal.ID, uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrInsufficientFunds)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "WithdrawalFinalized", mock.Anything, mock.Anything)
}
