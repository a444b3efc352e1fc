package claim

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pointhub/pointhub-api/internal/pkg/database"
)

// Guard grants at-most-once semantics for recurring point awards.
type Guard struct {
	tx   *database.TxRunner
	repo *Repository
}

func NewGuard(runner *database.TxRunner, repo *Repository) *Guard {
	return &Guard{tx: runner, repo: repo}
}

// TryClaimTx records the claim inside the caller's transaction. If the caller
// rolls back (e.g. the award failed) the claim disappears with it.
func (g *Guard) TryClaimTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, key string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, ErrEmptyKey
	}
	return g.repo.InsertTx(ctx, tx, accountID, key)
}

// TryClaim records the claim in its own transaction.
func (g *Guard) TryClaim(ctx context.Context, accountID uuid.UUID, key string) (bool, error) {
	var claimed bool
	err := g.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		claimed, err = g.TryClaimTx(ctx, tx, accountID, key)
		return err
	})
	return claimed, err
}

// Claimed reports whether key has already been consumed.
func (g *Guard) Claimed(ctx context.Context, accountID uuid.UUID, key string) (bool, error) {
	return g.repo.Exists(ctx, accountID, key)
}
