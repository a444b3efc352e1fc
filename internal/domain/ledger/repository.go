package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pointhub/pointhub-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

const transactionColumns = `id, seq, account_id, amount, kind, reason, related_entity_id, balance_before, balance_after, created_at`

// Repository is the only writer of accounts.point_balance.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ApplyTx moves the balance and appends the log row inside tx.
// The conditional UPDATE takes the row lock, so calls against one account serialize
// and balance_before is exact.
func (r *Repository) ApplyTx(ctx context.Context, tx *sqlx.Tx, e Entry) (*Transaction, error) {
	var earned int64
	if e.Kind == KindEarn {
		earned = e.Amount
	}

	var after int64
	err := tx.QueryRowxContext(ctx, `
		UPDATE accounts
		SET point_balance = point_balance + $2,
			total_points_earned = total_points_earned + $3,
			updated_at = now()
		WHERE id = $1 AND point_balance + $2 >= 0
		RETURNING point_balance
	`, e.AccountID, e.Amount, earned).Scan(&after)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, e.AccountID); err != nil {
			return nil, fmt.Errorf("check account: %w", err)
		}
		if !exists {
			return nil, ErrAccountNotFound
		}
		return nil, ErrInsufficientBalance
	}
	// point_balance >= 0 is also a table CHECK
	if database.IsCheckViolation(err) {
		return nil, ErrInsufficientBalance
	}
	if err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	txn := &Transaction{
		ID:            uuid.New(),
		AccountID:     e.AccountID,
		Amount:        e.Amount,
		Kind:          e.Kind,
		Reason:        e.Reason,
		BalanceBefore: after - e.Amount,
		BalanceAfter:  after,
	}
	if e.RelatedEntityID != "" {
		related := e.RelatedEntityID
		txn.RelatedEntityID = &related
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO point_transactions (
			id, account_id, amount, kind, reason, related_entity_id, balance_before, balance_after
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq, created_at
	`, txn.ID, txn.AccountID, txn.Amount, string(txn.Kind), txn.Reason, txn.RelatedEntityID, txn.BalanceBefore, txn.BalanceAfter).
		Scan(&txn.Seq, &txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	return txn, nil
}

func (r *Repository) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance int64
	err := r.db.GetContext(ctx2, &balance, `SELECT point_balance FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// ListTransactions returns the log newest first
func (r *Repository) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	transactions := make([]Transaction, 0)
	err := r.db.SelectContext(ctx2, &transactions, `
		SELECT `+transactionColumns+`
		FROM point_transactions
		WHERE account_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

// ListByRelatedEntity returns every leg recorded against one mission, redemption or streak.
func (r *Repository) ListByRelatedEntity(ctx context.Context, relatedEntityID string) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	transactions := make([]Transaction, 0)
	err := r.db.SelectContext(ctx2, &transactions, `
		SELECT `+transactionColumns+`
		FROM point_transactions
		WHERE related_entity_id = $1
		ORDER BY seq ASC
	`, relatedEntityID)
	if err != nil {
		return nil, fmt.Errorf("list related transactions: %w", err)
	}
	return transactions, nil
}

func (r *Repository) Check(ctx context.Context, accountID uuid.UUID) (*Check, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	check := &Check{AccountID: accountID}

	err := r.db.GetContext(ctx2, check, `
		SELECT
			a.point_balance,
			(SELECT t.balance_after FROM point_transactions t WHERE t.account_id = a.id ORDER BY t.seq DESC LIMIT 1) AS latest_balance_after,
			(SELECT COALESCE(SUM(t.amount), 0) FROM point_transactions t WHERE t.account_id = a.id) AS log_sum,
			(SELECT COUNT(*) FROM point_transactions t WHERE t.account_id = a.id) AS transactions
		FROM accounts a
		WHERE a.id = $1
	`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("check ledger: %w", err)
	}

	latestMatches := check.LatestBalanceAfter == nil && check.PointBalance == 0 ||
		check.LatestBalanceAfter != nil && *check.LatestBalanceAfter == check.PointBalance
	check.Consistent = latestMatches && check.LogSum == check.PointBalance

	return check, nil
}
