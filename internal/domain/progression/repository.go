package progression

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateXPEventTx(ctx context.Context, tx *sqlx.Tx, e *XPEvent) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO business_xp_events (id, business_id, amount, reason, xp_after)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, e.ID, e.BusinessID, e.Amount, e.Reason, e.XPAfter).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert xp event: %w", err)
	}
	return nil
}

// ListXPEvents returns the newest grants first
func (r *Repository) ListXPEvents(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*XPEvent, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	events := make([]*XPEvent, 0)
	err := r.db.SelectContext(ctx2, &events, `
		SELECT id, business_id, amount, reason, xp_after, created_at
		FROM business_xp_events
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, businessID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list xp events: %w", err)
	}
	return events, nil
}
