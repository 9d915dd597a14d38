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

// WithdrawalRepository persists withdrawal requests
type WithdrawalRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *sqlx.DB, logger *logger.Logger) *WithdrawalRepository {
	return &WithdrawalRepository{
		db:     db,
		logger: logger,
	}
}

const withdrawalColumns = `id, user_id, amount, bank, account, status, rejection_reason, processed_by, processed_at, created_at, updated_at`

// Create inserts a new withdrawal request
func (r *WithdrawalRepository) Create(ctx context.Context, withdrawal *entities.Withdrawal) error {
	if err := withdrawal.Validate(); err != nil {
		return domainerrors.ValidationError(err.Error())
	}
	if withdrawal.ID == uuid.Nil {
		withdrawal.ID = uuid.New()
	}
	now := time.Now().UTC()
	if withdrawal.CreatedAt.IsZero() {
		withdrawal.CreatedAt = now
	}
	withdrawal.UpdatedAt = now

	query := `
		INSERT INTO withdrawals (id, user_id, amount, bank, account, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		withdrawal.ID,
		withdrawal.UserID,
		withdrawal.Amount,
		withdrawal.Bank,
		withdrawal.Account,
		string(withdrawal.Status),
		withdrawal.CreatedAt,
		withdrawal.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create withdrawal", "error", err, "user_id", withdrawal.UserID.String())
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}

	return nil
}

// GetByID retrieves a withdrawal by ID
func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`

	withdrawal := &entities.Withdrawal{}
	if err := r.db.GetContext(ctx, withdrawal, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("withdrawal")
		}
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}

	return withdrawal, nil
}

// GetForUpdate retrieves a withdrawal by ID under a row lock
func (r *WithdrawalRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1 FOR UPDATE`

	withdrawal := &entities.Withdrawal{}
	if err := sqlx.GetContext(ctx, querier(r.db, tx), withdrawal, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("withdrawal")
		}
		if mapped := mapPqError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to lock withdrawal: %w", err)
	}

	return withdrawal, nil
}

// Update writes status, rejection reason and processing metadata back
func (r *WithdrawalRepository) Update(ctx context.Context, tx *sqlx.Tx, withdrawal *entities.Withdrawal) error {
	query := `
		UPDATE withdrawals
		SET status = $2, rejection_reason = $3, processed_by = $4, processed_at = $5, updated_at = $6
		WHERE id = $1`

	result, err := querier(r.db, tx).ExecContext(ctx, query,
		withdrawal.ID,
		string(withdrawal.Status),
		withdrawal.RejectionReason,
		withdrawal.ProcessedBy,
		withdrawal.ProcessedAt,
		time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to update withdrawal", "error", err, "withdrawal_id", withdrawal.ID.String())
		return fmt.Errorf("failed to update withdrawal: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domainerrors.NotFound("withdrawal")
	}

	return nil
}

// ListPending returns withdrawals awaiting operator review, oldest first
func (r *WithdrawalRepository) ListPending(ctx context.Context, limit int) ([]*entities.Withdrawal, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`

	withdrawals := []*entities.Withdrawal{}
	if err := r.db.SelectContext(ctx, &withdrawals, query, string(entities.WithdrawalStatusPending), limit); err != nil {
		return nil, fmt.Errorf("failed to list pending withdrawals: %w", err)
	}

	return withdrawals, nil
}

// ListByUser returns a user's withdrawals newest first
func (r *WithdrawalRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Withdrawal, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	withdrawals := []*entities.Withdrawal{}
	if err := r.db.SelectContext(ctx, &withdrawals, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}

	return withdrawals, nil
}
