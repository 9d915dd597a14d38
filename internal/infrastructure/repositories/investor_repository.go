package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/vestra-invest/ledger-service/internal/domain/entities"
	domainerrors "github.com/vestra-invest/ledger-service/internal/domain/errors"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

// InvestorRepository persists per-user tier state
type InvestorRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewInvestorRepository creates a new investor repository
func NewInvestorRepository(db *sqlx.DB, logger *logger.Logger) *InvestorRepository {
	return &InvestorRepository{
		db:     db,
		logger: logger,
	}
}

const investorColumns = `id, user_id, tier_level, tier_since, display_basis, created_at, updated_at`

// GetByUser retrieves a user's investor profile
func (r *InvestorRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*entities.InvestorProfile, error) {
	query := `SELECT ` + investorColumns + ` FROM investor_profiles WHERE user_id = $1`

	profile := &entities.InvestorProfile{}
	if err := r.db.GetContext(ctx, profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("investor profile")
		}
		return nil, fmt.Errorf("failed to get investor profile: %w", err)
	}

	return profile, nil
}

// GetOrCreateForUpdate returns the user's profile under a row lock, creating
// a level-zero profile on first touch.
func (r *InvestorRepository) GetOrCreateForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*entities.InvestorProfile, error) {
	selectQuery := `SELECT ` + investorColumns + ` FROM investor_profiles WHERE user_id = $1 FOR UPDATE`

	profile := &entities.InvestorProfile{}
	err := sqlx.GetContext(ctx, querier(r.db, tx), profile, selectQuery, userID)
	if err == nil {
		return profile, nil
	}
	if err != sql.ErrNoRows {
		if mapped := mapPqError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to lock investor profile: %w", err)
	}

	now := time.Now().UTC()
	insertQuery := `
		INSERT INTO investor_profiles (id, user_id, tier_level, display_basis, created_at, updated_at)
		VALUES ($1, $2, 0, 0, $3, $3)`

	if _, err = querier(r.db, tx).ExecContext(ctx, insertQuery, uuid.New(), userID, now); err != nil && !isUniqueViolation(err) {
		r.logger.Error("Failed to create investor profile", "error", err, "user_id", userID.String())
		return nil, fmt.Errorf("failed to create investor profile: %w", err)
	}

	if err := sqlx.GetContext(ctx, querier(r.db, tx), profile, selectQuery, userID); err != nil {
		return nil, fmt.Errorf("failed to read investor profile after create: %w", err)
	}

	return profile, nil
}

// Update writes tier level, stamp and display basis back
func (r *InvestorRepository) Update(ctx context.Context, tx *sqlx.Tx, profile *entities.InvestorProfile) error {
	query := `
		UPDATE investor_profiles
		SET tier_level = $2, tier_since = $3, display_basis = $4, updated_at = $5
		WHERE id = $1`

	result, err := querier(r.db, tx).ExecContext(ctx, query,
		profile.ID,
		profile.TierLevel,
		profile.TierSince,
		profile.DisplayBasis,
		time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to update investor profile", "error", err, "user_id", profile.UserID.String())
		return fmt.Errorf("failed to update investor profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domainerrors.NotFound("investor profile")
	}

	return nil
}

// TierDistribution returns how many users sit at each tier level.
// Used by operational reporting.
func (r *InvestorRepository) TierDistribution(ctx context.Context) (map[int]int, error) {
	query := `SELECT tier_level, COUNT(*) AS n FROM investor_profiles GROUP BY tier_level`

	rows := []struct {
		TierLevel int `db:"tier_level"`
		N         int `db:"n"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to read tier distribution: %w", err)
	}

	dist := make(map[int]int, len(rows))
	for _, row := range rows {
		dist[row.TierLevel] = row.N
	}

	return dist, nil
}

// SumDisplayBasis totals persisted display bases, an operational sanity figure
func (r *InvestorRepository) SumDisplayBasis(ctx context.Context) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(display_basis), 0) FROM investor_profiles`

	var sum decimal.Decimal
	if err := r.db.GetContext(ctx, &sum, query); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum display basis: %w", err)
	}

	return sum, nil
}
