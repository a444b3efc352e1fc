package reward

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

const rewardColumns = `
	id, business_id, title, description, points_cost, total_available, claimed, unlimited, active,
	valid_from, valid_until, expires_at, available_days, available_from_minute, available_to_minute,
	level_required, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, rw *Reward) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO rewards (
			id, business_id, title, description, points_cost, total_available, unlimited, active,
			valid_from, valid_until, expires_at, available_days, available_from_minute, available_to_minute,
			level_required
		) VALUES (
			:id, :business_id, :title, :description, :points_cost, :total_available, :unlimited, :active,
			:valid_from, :valid_until, :expires_at, :available_days, :available_from_minute, :available_to_minute,
			:level_required
		)
		RETURNING claimed, created_at, updated_at`

	rows, err := r.db.NamedQueryContext(ctx2, query, rw)
	if err != nil {
		return fmt.Errorf("insert reward: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&rw.Claimed, &rw.CreatedAt, &rw.UpdatedAt); err != nil {
			return fmt.Errorf("scan reward: %w", err)
		}
	}
	return rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Reward, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rw Reward
	err := r.db.GetContext(ctx2, &rw, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return &rw, nil
}

// ListByBusiness returns a business' rewards, newest first. activeOnly hides
// deactivated offers from customers.
func (r *Repository) ListByBusiness(ctx context.Context, businessID uuid.UUID, activeOnly bool, limit, offset int) ([]*Reward, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	rewards := make([]*Reward, 0)
	err := r.db.SelectContext(ctx2, &rewards, `
		SELECT `+rewardColumns+`
		FROM rewards
		WHERE business_id = $1 AND (active OR NOT $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, businessID, activeOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	return rewards, nil
}

// SetActive toggles a reward owned by businessID.
func (r *Repository) SetActive(ctx context.Context, businessID, id uuid.UUID, active bool) (*Reward, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rw Reward
	err := r.db.GetContext(ctx2, &rw, `
		UPDATE rewards
		SET active = $3, updated_at = now()
		WHERE id = $1 AND business_id = $2
		RETURNING `+rewardColumns, id, businessID, active)
	if err == nil {
		return &rw, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("set reward active: %w", err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrNotRewardOwner
}

// IncrementClaimedTx takes one unit. It reports false when no unit is left; the
// check and the write are one statement so concurrent redeemers cannot oversell.
func (r *Repository) IncrementClaimedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE rewards
		SET claimed = claimed + 1, updated_at = now()
		WHERE id = $1 AND (unlimited OR claimed < total_available)
	`, id)
	if err != nil {
		return false, fmt.Errorf("increment claimed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment claimed rows: %w", err)
	}
	return rows == 1, nil
}

// DecrementClaimedTx returns one unit to stock after a cancellation.
func (r *Repository) DecrementClaimedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE rewards
		SET claimed = claimed - 1, updated_at = now()
		WHERE id = $1 AND claimed > 0
	`, id)
	if err != nil {
		return fmt.Errorf("decrement claimed: %w", err)
	}
	return nil
}
