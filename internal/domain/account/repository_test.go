package account

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointhub/pointhub-api/internal/middleware"
)

var (
	upsertSQL = regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role, updated_at = now() WHERE accounts.role IS DISTINCT FROM EXCLUDED.role")
	selectSQL = regexp.QuoteMeta("FROM accounts WHERE id = $1")
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(NewRepository(sqlx.NewDb(db, "sqlmock"))), mock
}

func accountRow(id uuid.UUID, role Role) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "role", "point_balance", "total_points_earned",
		"login_streak", "longest_login_streak", "last_login_at", "last_streak_reward_claimed", "total_streak_points_earned",
		"business_level", "business_sub_level", "business_xp", "upgrade_requested", "upgrade_requested_at",
		"created_at", "updated_at",
	}).AddRow(
		id.String(), string(role), int64(0), int64(0),
		0, 0, nil, nil, int64(0),
		1, 1, int64(0), false, nil,
		now, now,
	)
}

func expectEnsure(mock sqlmock.Sqlmock, id uuid.UUID, role Role) {
	mock.ExpectExec(upsertSQL).WithArgs(id, string(role)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(selectSQL).WithArgs(id).WillReturnRows(accountRow(id, role))
}

func TestEnsureMovesStoredRoleToTokenRole(t *testing.T) {
	svc, mock := newMockService(t)
	id := uuid.New()

	expectEnsure(mock, id, RoleBusiness)

	acct, err := svc.Ensure(context.Background(), id, RoleBusiness)
	require.NoError(t, err)
	assert.Equal(t, RoleBusiness, acct.Role)
	assert.True(t, acct.IsBusiness())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureRejectsUnknownRole(t *testing.T) {
	svc, mock := newMockService(t)

	_, err := svc.Ensure(context.Background(), uuid.New(), Role("guest"))
	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisionResyncsWhenTokenRoleChanges(t *testing.T) {
	svc, mock := newMockService(t)
	id := uuid.New()

	calls := 0
	h := Provision(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func(role Role) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(middleware.WithAccount(req.Context(), id, string(role)))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	expectEnsure(mock, id, RoleCustomer)
	assert.Equal(t, http.StatusNoContent, serve(RoleCustomer))
	// cached
	assert.Equal(t, http.StatusNoContent, serve(RoleCustomer))

	expectEnsure(mock, id, RoleBusiness)
	assert.Equal(t, http.StatusNoContent, serve(RoleBusiness))

	expectEnsure(mock, id, RoleCustomer)
	assert.Equal(t, http.StatusNoContent, serve(RoleCustomer))

	assert.Equal(t, 4, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisionForbidsUnknownRole(t *testing.T) {
	svc, mock := newMockService(t)

	h := Provision(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithAccount(req.Context(), uuid.New(), "guest"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
