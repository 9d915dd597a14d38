package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vestra-invest/ledger-service/internal/domain/entities"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

// LedgerRepository appends and reads immutable ledger entries.
// There is deliberately no update or delete path.
type LedgerRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *sqlx.DB, logger *logger.Logger) *LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a new ledger entry, assigning ID and timestamp if unset
func (r *LedgerRepository) Append(ctx context.Context, tx *sqlx.Tx, entry *entities.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid ledger entry: %w", err)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO ledger_entries (id, wallet_id, amount, kind, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := querier(r.db, tx).ExecContext(ctx, query,
		entry.ID,
		entry.WalletID,
		entry.Amount,
		string(entry.Kind),
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append ledger entry", "error", err, "wallet_id", entry.WalletID.String(), "kind", string(entry.Kind))
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// ListByWallet returns a wallet's entries newest first
func (r *LedgerRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT id, wallet_id, amount, kind, created_at
		FROM ledger_entries
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	entries := []*entities.LedgerEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, walletID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	return entries, nil
}

// CountByWalletAndKind returns how many entries of a kind a wallet has.
// Used by reconciliation checks and tests.
func (r *LedgerRepository) CountByWalletAndKind(ctx context.Context, walletID uuid.UUID, kind entities.EntryKind) (int, error) {
	query := `SELECT COUNT(*) FROM ledger_entries WHERE wallet_id = $1 AND kind = $2`

	var count int
	if err := r.db.GetContext(ctx, &count, query, walletID, string(kind)); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}
