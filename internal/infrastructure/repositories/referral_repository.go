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

// ReferralRepository persists referral codes, links and commission rewards
type ReferralRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewReferralRepository creates a new referral repository
func NewReferralRepository(db *sqlx.DB, logger *logger.Logger) *ReferralRepository {
	return &ReferralRepository{
		db:     db,
		logger: logger,
	}
}

// CreateCode inserts a referral code owned by a referrer
func (r *ReferralRepository) CreateCode(ctx context.Context, code *entities.ReferralCode) error {
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO referral_codes (id, code, referrer_id, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, code.ID, code.Code, code.ReferrerID, code.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyProcessed
		}
		r.logger.Error("Failed to create referral code", "error", err, "referrer_id", code.ReferrerID.String())
		return fmt.Errorf("failed to create referral code: %w", err)
	}

	return nil
}

// GetCodeByCode resolves a referral code string to its record
func (r *ReferralRepository) GetCodeByCode(ctx context.Context, code string) (*entities.ReferralCode, error) {
	query := `SELECT id, code, referrer_id, created_at FROM referral_codes WHERE code = $1`

	rc := &entities.ReferralCode{}
	if err := r.db.GetContext(ctx, rc, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("referral code")
		}
		return nil, fmt.Errorf("failed to get referral code: %w", err)
	}

	return rc, nil
}

// GetCodeByReferrer returns the referrer's code if one exists
func (r *ReferralRepository) GetCodeByReferrer(ctx context.Context, referrerID uuid.UUID) (*entities.ReferralCode, error) {
	query := `SELECT id, code, referrer_id, created_at FROM referral_codes WHERE referrer_id = $1`

	rc := &entities.ReferralCode{}
	if err := r.db.GetContext(ctx, rc, query, referrerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("referral code")
		}
		return nil, fmt.Errorf("failed to get referral code by referrer: %w", err)
	}

	return rc, nil
}

const referralColumns = `id, code_id, referred_user_id, parent_referral_id, generation, status, used_at, first_deposit_reward_processed, created_at`

// CreateReferral links a referred user to a code. The unique index on
// referred_user_id guarantees at most one used referral per user.
func (r *ReferralRepository) CreateReferral(ctx context.Context, referral *entities.Referral) error {
	if err := referral.Validate(); err != nil {
		return domainerrors.ValidationError(err.Error())
	}
	if referral.ID == uuid.Nil {
		referral.ID = uuid.New()
	}
	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO referrals (id, code_id, referred_user_id, parent_referral_id, generation, status, used_at, first_deposit_reward_processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		referral.ID,
		referral.CodeID,
		referral.ReferredUserID,
		referral.ParentReferralID,
		referral.Generation,
		string(referral.Status),
		referral.UsedAt,
		referral.FirstDepositRewardProcessed,
		referral.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyProcessed
		}
		r.logger.Error("Failed to create referral", "error", err, "referred_user_id", referral.ReferredUserID.String())
		return fmt.Errorf("failed to create referral: %w", err)
	}

	return nil
}

// GetByID retrieves a referral by ID
func (r *ReferralRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE id = $1`

	referral := &entities.Referral{}
	if err := r.db.GetContext(ctx, referral, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("referral")
		}
		return nil, fmt.Errorf("failed to get referral: %w", err)
	}

	return referral, nil
}

// GetUsedByReferredUser returns the used referral that brought a user in,
// or a not-found error when the user joined without a code.
func (r *ReferralRepository) GetUsedByReferredUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*entities.Referral, error) {
	// the unique index on referred_user_id makes duplicates impossible;
	// the ordering pins the oldest link if that ever stops holding
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE referred_user_id = $1 AND status = $2 ORDER BY created_at ASC LIMIT 1`

	referral := &entities.Referral{}
	if err := sqlx.GetContext(ctx, querier(r.db, tx), referral, query, userID, string(entities.ReferralStatusUsed)); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFound("referral")
		}
		return nil, fmt.Errorf("failed to get referral for user: %w", err)
	}

	return referral, nil
}

// ReferrerForReferral resolves the user who owns the code a referral used
func (r *ReferralRepository) ReferrerForReferral(ctx context.Context, tx *sqlx.Tx, referralID uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT rc.referrer_id
		FROM referrals rf
		JOIN referral_codes rc ON rc.id = rf.code_id
		WHERE rf.id = $1`

	var referrerID uuid.UUID
	if err := sqlx.GetContext(ctx, querier(r.db, tx), &referrerID, query, referralID); err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, domainerrors.NotFound("referral")
		}
		return uuid.Nil, fmt.Errorf("failed to resolve referrer: %w", err)
	}

	return referrerID, nil
}

// MarkFirstDepositProcessed flips the fast-path flag after the first
// qualifying deposit's commissions were paid. The reward table's unique
// constraint remains the authoritative guard; this flag only short-circuits.
func (r *ReferralRepository) MarkFirstDepositProcessed(ctx context.Context, tx *sqlx.Tx, referralID uuid.UUID) error {
	query := `UPDATE referrals SET first_deposit_reward_processed = TRUE WHERE id = $1`

	result, err := querier(r.db, tx).ExecContext(ctx, query, referralID)
	if err != nil {
		return fmt.Errorf("failed to mark referral processed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domainerrors.NotFound("referral")
	}

	return nil
}

// CreateReward records one commission payout. The unique constraint on
// (referral_id, deposit_id) makes a duplicate delivery surface as
// ErrAlreadyProcessed, which the payout flow treats as success.
func (r *ReferralRepository) CreateReward(ctx context.Context, tx *sqlx.Tx, reward *entities.ReferralReward) error {
	if reward.ID == uuid.Nil {
		reward.ID = uuid.New()
	}
	if reward.CreatedAt.IsZero() {
		reward.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO referral_rewards (id, referral_id, deposit_id, generation, amount, ledger_entry_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier(r.db, tx).ExecContext(ctx, query,
		reward.ID,
		reward.ReferralID,
		reward.DepositID,
		reward.Generation,
		reward.Amount,
		reward.LedgerEntryID,
		reward.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyProcessed
		}
		r.logger.Error("Failed to create referral reward", "error", err, "referral_id", reward.ReferralID.String(), "deposit_id", reward.DepositID.String())
		return fmt.Errorf("failed to create referral reward: %w", err)
	}

	return nil
}

// ListRewardsByReferral returns the rewards paid to a referral, newest first
func (r *ReferralRepository) ListRewardsByReferral(ctx context.Context, referralID uuid.UUID) ([]*entities.ReferralReward, error) {
	query := `
		SELECT id, referral_id, deposit_id, generation, amount, ledger_entry_id, created_at
		FROM referral_rewards
		WHERE referral_id = $1
		ORDER BY created_at DESC`

	rewards := []*entities.ReferralReward{}
	if err := r.db.SelectContext(ctx, &rewards, query, referralID); err != nil {
		return nil, fmt.Errorf("failed to list referral rewards: %w", err)
	}

	return rewards, nil
}

// CountReferralsByCode returns how many users joined through a code
func (r *ReferralRepository) CountReferralsByCode(ctx context.Context, codeID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM referrals WHERE code_id = $1`

	var count int
	if err := r.db.GetContext(ctx, &count, query, codeID); err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}

	return count, nil
}
