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

// WalletRepository persists wallets and their four balance buckets
type WalletRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *sqlx.DB, logger *logger.Logger) *WalletRepository {
	return &WalletRepository{
		db:     db,
		logger: logger,
	}
}

const walletColumns = `id, user_id, currency, available, pending, gains, locked, created_at, updated_at`

// GetByID retrieves a wallet by ID
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	wallet := &entities.Wallet{}
	if err := r.db.GetContext(ctx, wallet, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("wallet")
		}
		r.logger.Error("Failed to get wallet", "error", err, "wallet_id", id.String())
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return wallet, nil
}

// GetByUserAndCurrency retrieves a user's wallet for a currency
func (r *WalletRepository) GetByUserAndCurrency(ctx context.Context, userID uuid.UUID, currency string) (*entities.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND currency = $2`

	wallet := &entities.Wallet{}
	if err := r.db.GetContext(ctx, wallet, query, userID, currency); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("wallet")
		}
		r.logger.Error("Failed to get wallet by user and currency", "error", err, "user_id", userID.String(), "currency", currency)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return wallet, nil
}

// GetForUpdate retrieves a wallet by ID under a row lock
func (r *WalletRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entities.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	wallet := &entities.Wallet{}
	if err := sqlx.GetContext(ctx, querier(r.db, tx), wallet, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("wallet")
		}
		if mapped := mapPqError(err); mapped != err {
			return nil, mapped
		}
		r.logger.Error("Failed to lock wallet", "error", err, "wallet_id", id.String())
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	return wallet, nil
}

// GetOrCreateForUpdate returns the user's wallet for a currency under a row
// lock, creating it with zero balances on first touch. Concurrent first
// touches are resolved by the unique (user_id, currency) index: the loser of
// the insert race re-reads the winner's row.
func (r *WalletRepository) GetOrCreateForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, currency string) (*entities.Wallet, error) {
	selectQuery := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND currency = $2 FOR UPDATE`

	wallet := &entities.Wallet{}
	err := sqlx.GetContext(ctx, querier(r.db, tx), wallet, selectQuery, userID, currency)
	if err == nil {
		return wallet, nil
	}
	if err != sql.ErrNoRows {
		if mapped := mapPqError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	now := time.Now().UTC()
	insertQuery := `
		INSERT INTO wallets (id, user_id, currency, available, pending, gains, locked, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, 0, 0, $4, $4)`

	if _, err = querier(r.db, tx).ExecContext(ctx, insertQuery, uuid.New(), userID, currency, now); err != nil && !isUniqueViolation(err) {
		r.logger.Error("Failed to create wallet", "error", err, "user_id", userID.String(), "currency", currency)
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	if err := sqlx.GetContext(ctx, querier(r.db, tx), wallet, selectQuery, userID, currency); err != nil {
		return nil, fmt.Errorf("failed to read wallet after create: %w", err)
	}

	r.logger.Debug("Wallet ready", "wallet_id", wallet.ID.String(), "user_id", userID.String())
	return wallet, nil
}

// FirstByUserForUpdate locks and returns the user's oldest wallet.
// Used by flows that operate on "the" wallet of a single-currency user.
func (r *WalletRepository) FirstByUserForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*entities.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 ORDER BY created_at ASC LIMIT 1 FOR UPDATE`

	wallet := &entities.Wallet{}
	if err := sqlx.GetContext(ctx, querier(r.db, tx), wallet, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("wallet")
		}
		if mapped := mapPqError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	return wallet, nil
}

// UpdateBalances writes all four buckets back for a locked wallet
func (r *WalletRepository) UpdateBalances(ctx context.Context, tx *sqlx.Tx, wallet *entities.Wallet) error {
	query := `
		UPDATE wallets
		SET available = $2, pending = $3, gains = $4, locked = $5, updated_at = $6
		WHERE id = $1`

	result, err := querier(r.db, tx).ExecContext(ctx, query,
		wallet.ID,
		wallet.Available,
		wallet.Pending,
		wallet.Gains,
		wallet.Locked,
		time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to update wallet balances", "error", err, "wallet_id", wallet.ID.String())
		return fmt.Errorf("failed to update wallet balances: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domainerrors.NotFound("wallet")
	}

	return nil
}

// ListByUser returns all wallets owned by a user
func (r *WalletRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 ORDER BY created_at ASC`

	wallets := []*entities.Wallet{}
	if err := r.db.SelectContext(ctx, &wallets, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	return wallets, nil
}

// SumAvailableByUser totals the user's available buckets across currencies
func (r *WalletRepository) SumAvailableByUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(available), 0) FROM wallets WHERE user_id = $1`

	var sum decimal.Decimal
	if err := sqlx.GetContext(ctx, querier(r.db, tx), &sum, query, userID); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum available balances: %w", err)
	}

	return sum, nil
}

// SumLockedByUser totals the user's locked buckets across currencies
func (r *WalletRepository) SumLockedByUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(locked), 0) FROM wallets WHERE user_id = $1`

	var sum decimal.Decimal
	if err := sqlx.GetContext(ctx, querier(r.db, tx), &sum, query, userID); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum locked balances: %w", err)
	}

	return sum, nil
}

// SumPortfolioByUser totals available + locked + gains across currencies
func (r *WalletRepository) SumPortfolioByUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(available + locked + gains), 0) FROM wallets WHERE user_id = $1`

	var sum decimal.Decimal
	if err := sqlx.GetContext(ctx, querier(r.db, tx), &sum, query, userID); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum portfolio: %w", err)
	}

	return sum, nil
}
