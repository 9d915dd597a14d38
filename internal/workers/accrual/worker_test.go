package accrual

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	domainerrors "github.com/vestra-invest/ledger-service/internal/domain/errors"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

type MockInvestmentLister struct {
	mock.Mock
}

func (m *MockInvestmentLister) ListActiveIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockInvestmentLister) ListEncashDueIDs(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockAccruer struct {
	mock.Mock
}

func (m *MockAccruer) Accrue(ctx context.Context, investmentID uuid.UUID, now time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, investmentID, now)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAccruer) EncashAccrued(ctx context.Context, investmentID uuid.UUID, now time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, investmentID, now)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func testWorker(lister *MockInvestmentLister, accruer *MockAccruer) *Worker {
	return NewWorker(lister, accruer, Config{
		Schedule:    "@hourly",
		BatchSize:   100,
		EncashAfter: 24 * time.Hour,
	}, logger.NewNop())
}

func TestRunOnceSurvivesPerInvestmentFailures(t *testing.T) {
	lister := new(MockInvestmentLister)
	accruer := new(MockAccruer)
	worker := testWorker(lister, accruer)

	healthy := uuid.New()
	partialDay := uuid.New()
	contested := uuid.New()
	broken := uuid.New()

	lister.On("ListActiveIDs", mock.Anything, 100).Return([]uuid.UUID{healthy, partialDay, contested, broken}, nil)
	lister.On("ListEncashDueIDs", mock.Anything, mock.Anything, 100).Return([]uuid.UUID{}, nil)

	accruer.On("Accrue", mock.Anything, healthy, mock.Anything).Return(decimal.RequireFromString("12.50"), nil)
	accruer.On("Accrue", mock.Anything, partialDay, mock.Anything).Return(decimal.Zero, domainerrors.NoElapsedDays())
	accruer.On("Accrue", mock.Anything, contested, mock.Anything).Return(decimal.Zero, domainerrors.Busy(errors.New("lock not available")))
	accruer.On("Accrue", mock.Anything, broken, mock.Anything).Return(decimal.Zero, errors.New("connection reset"))

	worker.RunOnce(context.Background())

	// every candidate was attempted despite the failures in between
	accruer.AssertNumberOfCalls(t, "Accrue", 4)
}

func TestRunOnceEncashPassUsesAgedCutoff(t *testing.T) {
	lister := new(MockInvestmentLister)
	accruer := new(MockAccruer)
	worker := testWorker(lister, accruer)

	due := uuid.New()
	lister.On("ListActiveIDs", mock.Anything, 100).Return([]uuid.UUID{}, nil)

	var cutoff time.Time
	lister.On("ListEncashDueIDs", mock.Anything, mock.AnythingOfType("time.Time"), 100).
		Run(func(args mock.Arguments) {
			cutoff = args.Get(1).(time.Time)
		}).Return([]uuid.UUID{due}, nil)
	accruer.On("EncashAccrued", mock.Anything, due, mock.Anything).Return(decimal.RequireFromString("5"), nil)

	before := time.Now().UTC()
	worker.RunOnce(context.Background())

	accruer.AssertCalled(t, "EncashAccrued", mock.Anything, due, mock.Anything)
	age := before.Sub(cutoff)
	assert.InDelta(t, (24 * time.Hour).Seconds(), age.Seconds(), 5, "cutoff trails now by the encash window")
}

func TestRunOnceListFailureSkipsPass(t *testing.T) {
	lister := new(MockInvestmentLister)
	accruer := new(MockAccruer)
	worker := testWorker(lister, accruer)

	lister.On("ListActiveIDs", mock.Anything, 100).Return(nil, errors.New("db down"))
	lister.On("ListEncashDueIDs", mock.Anything, mock.Anything, 100).Return(nil, errors.New("db down"))

	worker.RunOnce(context.Background())

	accruer.AssertNotCalled(t, "Accrue", mock.Anything, mock.Anything, mock.Anything)
	accruer.AssertNotCalled(t, "EncashAccrued", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunOnceStopsOnCancelledContext(t *testing.T) {
	lister := new(MockInvestmentLister)
	accruer := new(MockAccruer)
	worker := testWorker(lister, accruer)

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	lister.On("ListActiveIDs", mock.Anything, 100).Return(ids, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	worker.RunOnce(ctx)

	accruer.AssertNotCalled(t, "Accrue", mock.Anything, mock.Anything, mock.Anything)
}
