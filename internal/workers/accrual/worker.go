// Package accrual runs the scheduled interest batch: credit simple interest
// to every active investment that has full days outstanding, then sweep
// accrued interest that has aged past the encash window back to available.
package accrual

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	domainerrors "github.com/vestra-invest/ledger-service/internal/domain/errors"
	"github.com/vestra-invest/ledger-service/pkg/logger"
	"github.com/vestra-invest/ledger-service/pkg/metrics"
)

// InvestmentLister feeds the batch with candidate investment IDs
type InvestmentLister interface {
	ListActiveIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
	ListEncashDueIDs(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// Accruer applies interest and encashment per investment, each in its own
// transaction so one bad row never poisons the batch
type Accruer interface {
	Accrue(ctx context.Context, investmentID uuid.UUID, now time.Time) (decimal.Decimal, error)
	EncashAccrued(ctx context.Context, investmentID uuid.UUID, now time.Time) (decimal.Decimal, error)
}

// Config carries batch scheduling policy
type Config struct {
	// Schedule is a cron expression for batch runs
	Schedule string
	// BatchSize bounds how many investments one run touches
	BatchSize int
	// EncashAfter is how long accrued interest sits before the auto-sweep
	EncashAfter time.Duration
}

// Worker drives scheduled accrual runs
type Worker struct {
	investments InvestmentLister
	accruer     Accruer
	config      Config
	cron        *cron.Cron
	logger      *logger.Logger
	stopCh      chan struct{}
}

// NewWorker creates a new accrual worker
func NewWorker(investments InvestmentLister, accruer Accruer, config Config, logger *logger.Logger) *Worker {
	return &Worker{
		investments: investments,
		accruer:     accruer,
		config:      config,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// Start schedules batch runs and blocks until Stop or context cancellation
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting accrual worker", "schedule", w.config.Schedule)

	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.config.Schedule, func() {
		w.RunOnce(ctx)
	}); err != nil {
		return err
	}
	w.cron.Start()

	select {
	case <-ctx.Done():
		w.logger.Info("Accrual worker stopped (context cancelled)")
	case <-w.stopCh:
		w.logger.Info("Accrual worker stopped")
	}

	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	return nil
}

// Stop signals the worker to stop
func (w *Worker) Stop() {
	close(w.stopCh)
}

// RunOnce executes a single batch: accrual pass then encash pass. Failures
// are counted and logged per investment; the batch keeps going.
func (w *Worker) RunOnce(ctx context.Context) {
	now := time.Now().UTC()
	w.accrualPass(ctx, now)
	w.encashPass(ctx, now)
}

func (w *Worker) accrualPass(ctx context.Context, now time.Time) {
	ids, err := w.investments.ListActiveIDs(ctx, w.config.BatchSize)
	if err != nil {
		w.logger.Error("Failed to list investments for accrual", "error", err)
		return
	}

	var processed, skipped, failed int
	total := decimal.Zero

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}

		interest, err := w.accruer.Accrue(ctx, id, now)
		switch {
		case err == nil:
			processed++
			total = total.Add(interest)
			metrics.AccrualsProcessed.Inc()
			f, _ := interest.Float64()
			metrics.InterestAccrued.Add(f)
		case domainerrors.IsBusy(err):
			// another flow holds the row; the next run picks it up
			skipped++
		case domainerrors.IsNotFound(err) || errorsIsNoElapsedDays(err) || errorsIsNotActive(err):
			skipped++
		default:
			failed++
			metrics.AccrualFailures.Inc()
			w.logger.Error("Accrual failed", "error", err, "investment_id", id.String())
		}
	}

	if processed > 0 || failed > 0 {
		w.logger.Info("Accrual pass finished", "processed", processed, "skipped", skipped, "failed", failed, "interest", total.String())
	}
}

func (w *Worker) encashPass(ctx context.Context, now time.Time) {
	cutoff := now.Add(-w.config.EncashAfter)
	ids, err := w.investments.ListEncashDueIDs(ctx, cutoff, w.config.BatchSize)
	if err != nil {
		w.logger.Error("Failed to list investments for encashment", "error", err)
		return
	}

	var processed, skipped, failed int

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}

		_, err := w.accruer.EncashAccrued(ctx, id, now)
		switch {
		case err == nil:
			processed++
		case domainerrors.IsBusy(err), domainerrors.IsNotFound(err), errorsIsNoInterest(err), errorsIsNoElapsedDays(err), errorsIsNotActive(err):
			skipped++
		default:
			failed++
			w.logger.Error("Encashment failed", "error", err, "investment_id", id.String())
		}
	}

	if processed > 0 || failed > 0 {
		w.logger.Info("Encash pass finished", "processed", processed, "skipped", skipped, "failed", failed)
	}
}

func errorsIsNoElapsedDays(err error) bool {
	return errors.Is(err, domainerrors.ErrNoElapsedDays)
}

func errorsIsNoInterest(err error) bool {
	return errors.Is(err, domainerrors.ErrNoInterest)
}

func errorsIsNotActive(err error) bool {
	return errors.Is(err, domainerrors.ErrNotActive)
}
