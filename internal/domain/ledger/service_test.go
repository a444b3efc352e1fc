package ledger

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointhub/pointhub-api/internal/domain/claim"
	"github.com/pointhub/pointhub-api/internal/domain/notification"
	"github.com/pointhub/pointhub-api/internal/pkg/database"
)

var (
	updateBalanceSQL = regexp.QuoteMeta("UPDATE accounts SET point_balance = point_balance + $2")
	accountExistsSQL = regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)")
	insertTxnSQL     = regexp.QuoteMeta("INSERT INTO point_transactions")
	insertClaimSQL   = regexp.QuoteMeta("INSERT INTO award_claims")
)

func newTestService(t *testing.T, rate int64) (*Service, sqlmock.Sqlmock, *notification.Recorder) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	runner := database.NewTxRunner(sqlxDB, 1)
	guard := claim.NewGuard(runner, claim.NewRepository(sqlxDB))
	recorder := &notification.Recorder{}

	return NewService(runner, NewRepository(sqlxDB), guard, recorder, decimal.NewFromInt(rate)), mock, recorder
}

func expectApplied(mock sqlmock.Sqlmock, accountID uuid.UUID, amount, after int64, seq int64) {
	mock.ExpectQuery(updateBalanceSQL).
		WithArgs(accountID, amount, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"point_balance"}).AddRow(after))
	mock.ExpectQuery(insertTxnSQL).
		WillReturnRows(sqlmock.NewRows([]string{"seq", "created_at"}).AddRow(seq, time.Now()))
}

func expectRejected(mock sqlmock.Sqlmock, accountID uuid.UUID, amount int64, exists bool) {
	mock.ExpectQuery(updateBalanceSQL).
		WithArgs(accountID, amount, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"point_balance"}))
	mock.ExpectQuery(accountExistsSQL).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func TestAwardPointsRecordsBalances(t *testing.T) {
	svc, mock, recorder := newTestService(t, 100)
	accountID := uuid.New()

	mock.ExpectBegin()
	expectApplied(mock, accountID, 50, 150, 7)
	mock.ExpectCommit()

	txn, err := svc.AwardPoints(context.Background(), accountID, 50, "welcome", "")
	require.NoError(t, err)

	assert.Equal(t, KindEarn, txn.Kind)
	assert.Equal(t, int64(100), txn.BalanceBefore)
	assert.Equal(t, int64(150), txn.BalanceAfter)
	assert.Equal(t, int64(7), txn.Seq)
	assert.Nil(t, txn.RelatedEntityID)
	assert.NoError(t, mock.ExpectationsWereMet())

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notification.TypePointsEarned, events[0].Type)
}

func TestAwardPointsRejectsNonPositive(t *testing.T) {
	svc, mock, _ := newTestService(t, 100)

	_, err := svc.AwardPoints(context.Background(), uuid.New(), 0, "nothing", "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpendPointsInsufficientBalanceWritesNothing(t *testing.T) {
	svc, mock, _ := newTestService(t, 100)
	accountID := uuid.New()

	mock.ExpectBegin()
	expectRejected(mock, accountID, -500, true)
	mock.ExpectRollback()

	_, err := svc.SpendPoints(context.Background(), accountID, 500, "too much", "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpendPointsCheckViolationIsInsufficientBalance(t *testing.T) {
	svc, mock, _ := newTestService(t, 100)
	accountID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(updateBalanceSQL).
		WithArgs(accountID, int64(-40), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23514", Constraint: "accounts_point_balance_check"})
	mock.ExpectRollback()

	_, err := svc.SpendPoints(context.Background(), accountID, 40, "raced", "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpendPointsUnknownAccount(t *testing.T) {
	svc, mock, _ := newTestService(t, 100)
	accountID := uuid.New()

	mock.ExpectBegin()
	expectRejected(mock, accountID, -5, false)
	mock.ExpectRollback()

	_, err := svc.SpendPoints(context.Background(), accountID, 5, "ghost", "")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferTxDebitsBeforeCrediting(t *testing.T) {
	svc, mock, _ := newTestService(t, 100)
	customer, business := uuid.New(), uuid.New()

	mock.ExpectBegin()
	expectApplied(mock, customer, -60, 40, 1)
	expectApplied(mock, business, 60, 60, 2)
	mock.ExpectCommit()

	var transfer *Transfer
	err := svc.tx.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		var err error
		transfer, err = svc.TransferTx(context.Background(), tx, customer, business, 60, "reward", "redemption:1")
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, KindSpend, transfer.Debit.Kind)
	assert.Equal(t, int64(100), transfer.Debit.BalanceBefore)
	assert.Equal(t, int64(40), transfer.Debit.BalanceAfter)
	assert.Equal(t, KindEarn, transfer.Credit.Kind)
	assert.Equal(t, int64(0), transfer.Credit.BalanceBefore)
	require.NotNil(t, transfer.Debit.RelatedEntityID)
	assert.Equal(t, "redemption:1", *transfer.Debit.RelatedEntityID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferTxInsufficientSkipsCredit(t *testing.T) {
	svc, mock, _ := newTestService(t, 100)
	customer, business := uuid.New(), uuid.New()

	mock.ExpectBegin()
	expectRejected(mock, customer, -60, true)
	mock.ExpectRollback()

	err := svc.tx.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		_, err := svc.TransferTx(context.Background(), tx, customer, business, 60, "reward", "")
		return err
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferTxSameAccount(t *testing.T) {
	svc, _, _ := newTestService(t, 100)
	id := uuid.New()

	_, err := svc.TransferTx(context.Background(), nil, id, id, 10, "loop", "")
	assert.ErrorIs(t, err, ErrSameAccount)
}

func TestReverseTransferTxDebitsPayeeFirst(t *testing.T) {
	svc, mock, _ := newTestService(t, 100)
	customer, business := uuid.New(), uuid.New()

	mock.ExpectBegin()
	expectRejected(mock, business, -60, true)
	mock.ExpectRollback()

	err := svc.tx.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		_, err := svc.ReverseTransferTx(context.Background(), tx, customer, business, 60, "cancel", "")
		return err
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteMissionOnce(t *testing.T) {
	svc, mock, _ := newTestService(t, 100)
	accountID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(insertClaimSQL).
		WithArgs(sqlmock.AnyArg(), accountID, "mission:m-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectApplied(mock, accountID, 30, 30, 1)
	mock.ExpectCommit()

	txn, err := svc.CompleteMission(context.Background(), accountID, "m-1", 30)
	require.NoError(t, err)
	require.NotNil(t, txn.RelatedEntityID)
	assert.Equal(t, "mission:m-1", *txn.RelatedEntityID)

	mock.ExpectBegin()
	mock.ExpectExec(insertClaimSQL).
		WithArgs(sqlmock.AnyArg(), accountID, "mission:m-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = svc.CompleteMission(context.Background(), accountID, "m-1", 30)
	assert.ErrorIs(t, err, ErrMissionClaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertPointsRoundsDown(t *testing.T) {
	svc, mock, _ := newTestService(t, 100)
	businessID := uuid.New()

	mock.ExpectBegin()
	expectApplied(mock, businessID, -255, 45, 3)
	mock.ExpectCommit()

	conversion, err := svc.ConvertPoints(context.Background(), businessID, 255)
	require.NoError(t, err)

	assert.Equal(t, "2.55", conversion.Credit.StringFixed(2))
	assert.Equal(t, KindConversion, conversion.Transaction.Kind)
	assert.Equal(t, int64(-255), conversion.Transaction.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertPointsTooSmall(t *testing.T) {
	svc, mock, _ := newTestService(t, 1000)

	_, err := svc.ConvertPoints(context.Background(), uuid.New(), 5)
	assert.ErrorIs(t, err, ErrConversionTooSmall)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyFlagsDrift(t *testing.T) {
	svc, mock, _ := newTestService(t, 100)
	accountID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.point_balance")).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{"point_balance", "latest_balance_after", "log_sum", "transactions"}).
			AddRow(int64(120), int64(120), int64(100), int64(3)))

	check, err := svc.Verify(context.Background(), accountID)
	require.NoError(t, err)
	assert.False(t, check.Consistent)
	assert.Equal(t, accountID, check.AccountID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByRelatedEntityOldestFirst(t *testing.T) {
	svc, mock, _ := newTestService(t, 100)
	customer, business := uuid.New(), uuid.New()
	related := "redemption:" + uuid.NewString()
	now := time.Now()

	cols := []string{"id", "seq", "account_id", "amount", "kind", "reason", "related_entity_id", "balance_before", "balance_after", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM point_transactions WHERE related_entity_id = $1 ORDER BY seq ASC")).
		WithArgs(related).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(uuid.NewString(), int64(1), customer.String(), int64(-60), "SPEND", "reward redemption", related, int64(100), int64(40), now).
			AddRow(uuid.NewString(), int64(2), business.String(), int64(60), "EARN", "reward redemption", related, int64(0), int64(60), now))

	legs, err := svc.ListByRelatedEntity(context.Background(), related)
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, KindSpend, legs[0].Kind)
	assert.Equal(t, customer, legs[0].AccountID)
	assert.Equal(t, KindEarn, legs[1].Kind)
	require.NotNil(t, legs[1].RelatedEntityID)
	assert.Equal(t, related, *legs[1].RelatedEntityID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
