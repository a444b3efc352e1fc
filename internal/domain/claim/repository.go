package claim

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository stores award_claims rows, unique on (account_id, claim_key).
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// InsertTx records the claim if absent and reports whether this call created it.
// A concurrent inserter of the same key blocks on the unique index until we
// commit or roll back, so exactly one caller observes true.
func (r *Repository) InsertTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, key string) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO award_claims (id, account_id, claim_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, claim_key) DO NOTHING
	`, uuid.New(), accountID, key)
	if err != nil {
		return false, fmt.Errorf("insert claim: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *Repository) Exists(ctx context.Context, accountID uuid.UUID, key string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM award_claims WHERE account_id = $1 AND claim_key = $2)
	`, accountID, key)
	if err != nil {
		return false, fmt.Errorf("check claim: %w", err)
	}
	return exists, nil
}
