package redemption

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

const redemptionColumns = `
	id, user_id, reward_id, business_id, points_spent, coupon_code, status,
	redeemed_at, approved_at, used_at, used_by, cancelled_at, expired_at, expires_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateTx(ctx context.Context, tx *sqlx.Tx, rd *Redemption) error {
	query := `
		INSERT INTO redemptions (
			id, user_id, reward_id, business_id, points_spent, coupon_code, status, redeemed_at, expires_at
		) VALUES (
			:id, :user_id, :reward_id, :business_id, :points_spent, :coupon_code, :status, :redeemed_at, :expires_at
		)`
	if _, err := tx.NamedExecContext(ctx, query, rd); err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Redemption, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rd Redemption
	err := r.db.GetContext(ctx2, &rd, `SELECT `+redemptionColumns+` FROM redemptions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return &rd, nil
}

// GetForUpdateTx locks the redemption row; every transition reads through it.
func (r *Repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Redemption, error) {
	var rd Redemption
	err := tx.GetContext(ctx, &rd, `SELECT `+redemptionColumns+` FROM redemptions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("lock redemption: %w", err)
	}
	return &rd, nil
}

func (r *Repository) GetByCoupon(ctx context.Context, businessID uuid.UUID, code string) (*Redemption, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rd Redemption
	err := r.db.GetContext(ctx2, &rd, `
		SELECT `+redemptionColumns+`
		FROM redemptions
		WHERE business_id = $1 AND coupon_code = $2
	`, businessID, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("get redemption by coupon: %w", err)
	}
	return &rd, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Redemption, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	items := make([]*Redemption, 0)
	err := r.db.SelectContext(ctx2, &items, `
		SELECT `+redemptionColumns+`
		FROM redemptions
		WHERE user_id = $1
		ORDER BY redeemed_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	return items, nil
}

// ListByBusiness optionally filters by status; an empty status returns everything.
func (r *Repository) ListByBusiness(ctx context.Context, businessID uuid.UUID, status Status, limit, offset int) ([]*Redemption, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	items := make([]*Redemption, 0)
	err := r.db.SelectContext(ctx2, &items, `
		SELECT `+redemptionColumns+`
		FROM redemptions
		WHERE business_id = $1 AND ($2::text = '' OR status = $2)
		ORDER BY redeemed_at DESC
		LIMIT $3 OFFSET $4
	`, businessID, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list business redemptions: %w", err)
	}
	return items, nil
}

// TransitionTx persists rd's status fields if the row is still in status from.
// It reports false when another writer moved the row first.
func (r *Repository) TransitionTx(ctx context.Context, tx *sqlx.Tx, from Status, rd *Redemption) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE redemptions
		SET status = $3,
			approved_at = $4,
			used_at = $5,
			used_by = $6,
			cancelled_at = $7,
			expired_at = $8,
			updated_at = now()
		WHERE id = $1 AND status = $2
	`, rd.ID, string(from), string(rd.Status), rd.ApprovedAt, rd.UsedAt, rd.UsedBy, rd.CancelledAt, rd.ExpiredAt)
	if err != nil {
		return false, fmt.Errorf("update redemption status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("redemption rows affected: %w", err)
	}
	return rows == 1, nil
}

// ListExpirable returns ids of open redemptions whose deadline is at or before now.
func (r *Repository) ListExpirable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ids := make([]uuid.UUID, 0)
	err := r.db.SelectContext(ctx2, &ids, `
		SELECT id
		FROM redemptions
		WHERE status IN ('PENDING', 'APPROVED') AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expirable redemptions: %w", err)
	}
	return ids, nil
}
