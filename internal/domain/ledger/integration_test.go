package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointhub/pointhub-api/internal/domain/claim"
	"github.com/pointhub/pointhub-api/internal/domain/notification"
	"github.com/pointhub/pointhub-api/internal/pkg/database"
	"github.com/pointhub/pointhub-api/internal/pkg/database/dbtest"
)

func TestConcurrentSpendsNeverOverdraw(t *testing.T) {
	db := dbtest.Open(t)
	runner := database.NewTxRunner(db, 5)
	svc := NewService(runner, NewRepository(db), claim.NewGuard(runner, claim.NewRepository(db)), notification.NopPublisher{}, decimal.NewFromInt(100))

	accountID := dbtest.CreateAccount(t, db, "customer", 100)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SpendPoints(context.Background(), accountID, 30, "race", "")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientBalance)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)

	check, err := svc.Verify(context.Background(), accountID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
	assert.Equal(t, int64(10), check.PointBalance)
}

func TestConcurrentTransfersConservePoints(t *testing.T) {
	db := dbtest.Open(t)
	runner := database.NewTxRunner(db, 5)
	svc := NewService(runner, NewRepository(db), claim.NewGuard(runner, claim.NewRepository(db)), notification.NopPublisher{}, decimal.NewFromInt(100))

	a := dbtest.CreateAccount(t, db, "customer", 500)
	b := dbtest.CreateAccount(t, db, "business", 500)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		from, to := a, b
		if i%2 == 1 {
			from, to = b, a
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = runner.WithTx(context.Background(), func(tx *sqlx.Tx) error {
				_, err := svc.TransferTx(context.Background(), tx, from, to, 25, "shuffle", "")
				return err
			})
		}()
	}
	wg.Wait()

	balanceA, err := svc.GetBalance(context.Background(), a)
	require.NoError(t, err)
	balanceB, err := svc.GetBalance(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balanceA+balanceB)

	for _, id := range []uuid.UUID{a, b} {
		check, err := svc.Verify(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, check.Consistent)
	}
}
