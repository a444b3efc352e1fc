package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	pqUniqueViolation      = "23505"
	pqCheckViolation       = "23514"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"

	defaultTxAttempts = 3
	retryBackoff      = 20 * time.Millisecond
)

// TxRunner executes a unit of work inside one database transaction.
// Every multi-row mutation of the ledger goes through it so a failure
// anywhere leaves nothing behind.
type TxRunner struct {
	db          *sqlx.DB
	maxAttempts int
}

func NewTxRunner(db *sqlx.DB, maxAttempts int) *TxRunner {
	if maxAttempts <= 0 {
		maxAttempts = defaultTxAttempts
	}
	return &TxRunner{db: db, maxAttempts: maxAttempts}
}

// DB exposes the pool for read-only queries.
func (r *TxRunner) DB() *sqlx.DB {
	return r.db
}

// WithTx runs fn in a READ COMMITTED transaction, committing when fn returns nil.
// Serialization failures and deadlocks are retried with a linear backoff;
// fn must therefore be safe to re-run from scratch.
func (r *TxRunner) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = r.runOnce(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}

		log.Warn().Err(err).Int("attempt", attempt).Msg("Retrying ledger transaction")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return err
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsRetryable reports whether err is a transient conflict the store resolved by aborting us.
func IsRetryable(err error) bool {
	return hasCode(err, pqSerializationFailure) || hasCode(err, pqDeadlockDetected)
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, pqUniqueViolation)
}

// IsCheckViolation reports whether err is a CHECK constraint violation.
func IsCheckViolation(err error) bool {
	return hasCode(err, pqCheckViolation)
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
