package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

const accountColumns = `
	id, role, point_balance, total_points_earned,
	login_streak, longest_login_streak, last_login_at, last_streak_reward_claimed, total_streak_points_earned,
	business_level, business_sub_level, business_xp, upgrade_requested, upgrade_requested_at,
	created_at, updated_at`

// Repository reads accounts and writes the non-balance parts of a row.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Ensure creates the account row if it does not exist yet. The token's role is
// authoritative: an existing row whose role differs is moved to it.
func (r *Repository) Ensure(ctx context.Context, id uuid.UUID, role Role) (*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO accounts (id, role)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET role = EXCLUDED.role, updated_at = now()
		WHERE accounts.role IS DISTINCT FROM EXCLUDED.role
	`, id, string(role))
	if err != nil {
		return nil, fmt.Errorf("%w: ensure account: %v", ErrInternal, err)
	}

	return r.GetByID(ctx, id)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var a Account
	err := r.db.GetContext(ctx2, &a, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: get account: %v", ErrInternal, err)
	}
	return &a, nil
}

// GetForUpdateTx locks the account row for the rest of tx.
func (r *Repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Account, error) {
	var a Account
	err := tx.GetContext(ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lock account: %w", err)
	}
	return &a, nil
}

// UpdateStreakTx writes the streak fields. The claim date is sent as a plain date so the
// session time zone cannot shift it.
func (r *Repository) UpdateStreakTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, s StreakRecord) error {
	var claimedOn *string
	if s.LastStreakRewardClaimed != nil {
		day := s.LastStreakRewardClaimed.Format("2006-01-02")
		claimedOn = &day
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET login_streak = $2,
			longest_login_streak = $3,
			last_login_at = $4,
			last_streak_reward_claimed = $5::date,
			total_streak_points_earned = $6,
			updated_at = now()
		WHERE id = $1
	`, id, s.LoginStreak, s.LongestLoginStreak, s.LastLoginAt, claimedOn, s.TotalStreakPointsEarned)
	if err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	return nil
}

func (r *Repository) UpdateProgressTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, p BusinessProgress) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET business_level = $2,
			business_sub_level = $3,
			business_xp = $4,
			upgrade_requested = $5,
			upgrade_requested_at = $6,
			updated_at = now()
		WHERE id = $1
	`, id, p.BusinessLevel, p.BusinessSubLevel, p.BusinessXP, p.UpgradeRequested, p.UpgradeRequestedAt)
	if err != nil {
		return fmt.Errorf("update business progress: %w", err)
	}
	return nil
}

// ListPendingUpgrades returns businesses waiting for an admin decision, oldest request first.
func (r *Repository) ListPendingUpgrades(ctx context.Context, limit, offset int) ([]*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	accounts := make([]*Account, 0)
	err := r.db.SelectContext(ctx2, &accounts, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE role = 'business' AND upgrade_requested = true
		ORDER BY upgrade_requested_at ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list pending upgrades: %v", ErrInternal, err)
	}
	return accounts, nil
}
