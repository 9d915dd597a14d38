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

// DepositRepository persists inbound funding requests
type DepositRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewDepositRepository creates a new deposit repository
func NewDepositRepository(db *sqlx.DB, logger *logger.Logger) *DepositRepository {
	return &DepositRepository{
		db:     db,
		logger: logger,
	}
}

const depositColumns = `id, user_id, amount, currency, status, external_id, processed_at, created_at`

// Create inserts a new deposit record
func (r *DepositRepository) Create(ctx context.Context, deposit *entities.Deposit) error {
	if deposit.ID == uuid.Nil {
		deposit.ID = uuid.New()
	}
	if deposit.CreatedAt.IsZero() {
		deposit.CreatedAt = time.Now().UTC()
	}
	if deposit.Status == "" {
		deposit.Status = entities.DepositStatusPending
	}

	query := `
		INSERT INTO deposits (id, user_id, amount, currency, status, external_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		deposit.ID,
		deposit.UserID,
		deposit.Amount,
		deposit.Currency,
		string(deposit.Status),
		deposit.ExternalID,
		deposit.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyProcessed
		}
		r.logger.Error("Failed to create deposit", "error", err, "user_id", deposit.UserID.String())
		return fmt.Errorf("failed to create deposit: %w", err)
	}

	return nil
}

// GetByID retrieves a deposit by ID
func (r *DepositRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1`

	deposit := &entities.Deposit{}
	if err := r.db.GetContext(ctx, deposit, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("deposit")
		}
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}

	return deposit, nil
}

// GetByExternalID retrieves a deposit by its payment-provider reference
func (r *DepositRepository) GetByExternalID(ctx context.Context, externalID string) (*entities.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE external_id = $1`

	deposit := &entities.Deposit{}
	if err := r.db.GetContext(ctx, deposit, query, externalID); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("deposit")
		}
		return nil, fmt.Errorf("failed to get deposit by external ID: %w", err)
	}

	return deposit, nil
}

// GetForUpdate retrieves a deposit by ID under a row lock
func (r *DepositRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1 FOR UPDATE`

	deposit := &entities.Deposit{}
	if err := sqlx.GetContext(ctx, querier(r.db, tx), deposit, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("deposit")
		}
		if mapped := mapPqError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to lock deposit: %w", err)
	}

	return deposit, nil
}

// UpdateStatus transitions a deposit to a new status. The caller is
// responsible for having validated the transition against the entity's
// transition table.
func (r *DepositRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status entities.DepositStatus) error {
	query := `UPDATE deposits SET status = $2 WHERE id = $1`

	result, err := querier(r.db, tx).ExecContext(ctx, query, id, string(status))
	if err != nil {
		r.logger.Error("Failed to update deposit status", "error", err, "deposit_id", id.String(), "status", string(status))
		return fmt.Errorf("failed to update deposit status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domainerrors.NotFound("deposit")
	}

	return nil
}

// MarkProcessed stamps the time the ledger core applied the completion.
// The WHERE clause only matches unprocessed rows, so a second delivery
// updates nothing and returns ErrAlreadyProcessed.
func (r *DepositRepository) MarkProcessed(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error {
	query := `UPDATE deposits SET processed_at = $2 WHERE id = $1 AND processed_at IS NULL`

	result, err := querier(r.db, tx).ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark deposit processed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domainerrors.ErrAlreadyProcessed
	}

	return nil
}

// ListByUser returns a user's deposits newest first
func (r *DepositRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Deposit, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	deposits := []*entities.Deposit{}
	if err := r.db.SelectContext(ctx, &deposits, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}

	return deposits, nil
}
