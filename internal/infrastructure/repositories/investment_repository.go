package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vestra-invest/ledger-service/internal/domain/entities"
	domainerrors "github.com/vestra-invest/ledger-service/internal/domain/errors"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

// InvestmentRepository persists investments and market offers
type InvestmentRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewInvestmentRepository creates a new investment repository
func NewInvestmentRepository(db *sqlx.DB, logger *logger.Logger) *InvestmentRepository {
	return &InvestmentRepository{
		db:     db,
		logger: logger,
	}
}

const investmentColumns = `id, user_id, wallet_id, amount, daily_rate, last_accrual_at, accrued, offer_id, active, created_at`

// Create inserts a new investment
func (r *InvestmentRepository) Create(ctx context.Context, tx *sqlx.Tx, investment *entities.Investment) error {
	if err := investment.Validate(); err != nil {
		return domainerrors.ValidationError(err.Error())
	}
	if investment.ID == uuid.Nil {
		investment.ID = uuid.New()
	}
	if investment.CreatedAt.IsZero() {
		investment.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO investments (id, user_id, wallet_id, amount, daily_rate, last_accrual_at, accrued, offer_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier(r.db, tx).ExecContext(ctx, query,
		investment.ID,
		investment.UserID,
		investment.WalletID,
		investment.Amount,
		investment.DailyRate,
		investment.LastAccrualAt,
		investment.Accrued,
		investment.OfferID,
		investment.Active,
		investment.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create investment", "error", err, "user_id", investment.UserID.String())
		return fmt.Errorf("failed to create investment: %w", err)
	}

	return nil
}

// GetByID retrieves an investment by ID
func (r *InvestmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1`

	investment := &entities.Investment{}
	if err := r.db.GetContext(ctx, investment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("investment")
		}
		return nil, fmt.Errorf("failed to get investment: %w", err)
	}

	return investment, nil
}

// GetForUpdate retrieves an investment by ID under a row lock.
// NOWAIT keeps batch workers from queueing behind user-driven flows:
// a contended row surfaces as a retryable busy error instead.
func (r *InvestmentRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1 FOR UPDATE NOWAIT`

	investment := &entities.Investment{}
	if err := sqlx.GetContext(ctx, querier(r.db, tx), investment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("investment")
		}
		if mapped := mapPqError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to lock investment: %w", err)
	}

	return investment, nil
}

// Update writes accrual state and activity back for a locked investment
func (r *InvestmentRepository) Update(ctx context.Context, tx *sqlx.Tx, investment *entities.Investment) error {
	query := `
		UPDATE investments
		SET amount = $2, last_accrual_at = $3, accrued = $4, active = $5
		WHERE id = $1`

	result, err := querier(r.db, tx).ExecContext(ctx, query,
		investment.ID,
		investment.Amount,
		investment.LastAccrualAt,
		investment.Accrued,
		investment.Active,
	)
	if err != nil {
		r.logger.Error("Failed to update investment", "error", err, "investment_id", investment.ID.String())
		return fmt.Errorf("failed to update investment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domainerrors.NotFound("investment")
	}

	return nil
}

// ListByUser returns a user's investments newest first
func (r *InvestmentRepository) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*entities.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE user_id = $1`
	if activeOnly {
		query += ` AND active = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	investments := []*entities.Investment{}
	if err := r.db.SelectContext(ctx, &investments, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}

	return investments, nil
}

// ListActiveIDs returns IDs of all active non-contract investments that may
// be due for accrual. The worker locks each one individually, so this read
// takes no locks and can be arbitrarily stale.
func (r *InvestmentRepository) ListActiveIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 500
	}

	query := `
		SELECT id FROM investments
		WHERE active = TRUE AND offer_id IS NULL
		ORDER BY COALESCE(last_accrual_at, created_at) ASC
		LIMIT $1`

	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list active investments: %w", err)
	}

	return ids, nil
}

// ListEncashDueIDs returns IDs of active investments whose accrued interest
// is positive and whose last accrual happened at or before the cutoff.
func (r *InvestmentRepository) ListEncashDueIDs(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 500
	}

	query := `
		SELECT id FROM investments
		WHERE active = TRUE
		  AND accrued > 0
		  AND offer_id IS NULL
		  AND last_accrual_at IS NOT NULL
		  AND last_accrual_at <= $1
		ORDER BY last_accrual_at ASC
		LIMIT $2`

	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to list encash-due investments: %w", err)
	}

	return ids, nil
}

const offerColumns = `id, title, description, daily_rate, contract_duration_days, status, expires_at, created_at`

// CreateOffer inserts a new market offer
func (r *InvestmentRepository) CreateOffer(ctx context.Context, offer *entities.MarketOffer) error {
	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = time.Now().UTC()
	}
	if offer.Status == "" {
		offer.Status = entities.MarketOfferStatusOpen
	}

	query := `
		INSERT INTO market_offers (id, title, description, daily_rate, contract_duration_days, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		offer.ID,
		offer.Title,
		offer.Description,
		offer.DailyRate,
		offer.ContractDurationDays,
		string(offer.Status),
		offer.ExpiresAt,
		offer.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create market offer", "error", err)
		return fmt.Errorf("failed to create market offer: %w", err)
	}

	return nil
}

// GetOfferForUpdate retrieves a market offer under a row lock
func (r *InvestmentRepository) GetOfferForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.MarketOffer, error) {
	query := `SELECT ` + offerColumns + ` FROM market_offers WHERE id = $1 FOR UPDATE`

	offer := &entities.MarketOffer{}
	if err := sqlx.GetContext(ctx, querier(r.db, tx), offer, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("offer")
		}
		if mapped := mapPqError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to lock offer: %w", err)
	}

	return offer, nil
}

// UpdateOfferStatus transitions an offer to a new status
func (r *InvestmentRepository) UpdateOfferStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status entities.MarketOfferStatus) error {
	query := `UPDATE market_offers SET status = $2 WHERE id = $1`

	result, err := querier(r.db, tx).ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update offer status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domainerrors.NotFound("offer")
	}

	return nil
}

// ListOpenOffers returns offers currently accepting investments
func (r *InvestmentRepository) ListOpenOffers(ctx context.Context) ([]*entities.MarketOffer, error) {
	query := `
		SELECT ` + offerColumns + `
		FROM market_offers
		WHERE status = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at DESC`

	offers := []*entities.MarketOffer{}
	if err := r.db.SelectContext(ctx, &offers, query, string(entities.MarketOfferStatusOpen), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to list open offers: %w", err)
	}

	return offers, nil
}
