package progression

import (
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointhub/pointhub-api/internal/domain/account"
	"github.com/pointhub/pointhub-api/internal/domain/audit"
	"github.com/pointhub/pointhub-api/internal/domain/notification"
	"github.com/pointhub/pointhub-api/internal/pkg/database"
)

type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*account.Account
}

func (m *memoryAccounts) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *memoryAccounts) GetForUpdateTx(ctx context.Context, _ *sqlx.Tx, id uuid.UUID) (*account.Account, error) {
	return m.GetByID(ctx, id)
}

func (m *memoryAccounts) UpdateProgressTx(_ context.Context, _ *sqlx.Tx, id uuid.UUID, p account.BusinessProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id].BusinessProgress = p
	return nil
}

func (m *memoryAccounts) ListPendingUpgrades(_ context.Context, _, _ int) ([]*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*account.Account
	for _, a := range m.accounts {
		if a.UpgradeRequested {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

type memoryXP struct {
	events []*XPEvent
}

func (m *memoryXP) CreateXPEventTx(_ context.Context, _ *sqlx.Tx, e *XPEvent) error {
	m.events = append(m.events, e)
	return nil
}

func (m *memoryXP) ListXPEvents(_ context.Context, businessID uuid.UUID, _, _ int) ([]*XPEvent, error) {
	var out []*XPEvent
	for _, e := range m.events {
		if e.BusinessID == businessID {
			out = append(out, e)
		}
	}
	return out, nil
}

type auditRecord struct {
	actor, target uuid.UUID
	action        string
	reason        string
	oldValue      interface{}
	newValue      interface{}
}

type recordingAuditor struct {
	records []auditRecord
}

func (a *recordingAuditor) RecordTx(_ context.Context, _ *sqlx.Tx, actorID uuid.UUID, action, _ string, targetID uuid.UUID, reason string, oldValue, newValue interface{}) error {
	a.records = append(a.records, auditRecord{actor: actorID, target: targetID, action: action, reason: reason, oldValue: oldValue, newValue: newValue})
	return nil
}

type fixture struct {
	svc      *Service
	mock     sqlmock.Sqlmock
	accounts *memoryAccounts
	xp       *memoryXP
	audit    *recordingAuditor
	events   *notification.Recorder
}

func newFixture(t *testing.T, accts ...*account.Account) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		mock:     mock,
		accounts: &memoryAccounts{accounts: map[uuid.UUID]*account.Account{}},
		xp:       &memoryXP{},
		audit:    &recordingAuditor{},
		events:   &notification.Recorder{},
	}
	for _, a := range accts {
		f.accounts.accounts[a.ID] = a
	}
	f.svc = NewService(database.NewTxRunner(sqlx.NewDb(db, "sqlmock"), 1), f.accounts, f.xp, f.audit, f.events)
	return f
}

func business(level, sub int, xp int64, requested bool) *account.Account {
	return &account.Account{
		ID:   uuid.New(),
		Role: account.RoleBusiness,
		BusinessProgress: account.BusinessProgress{
			BusinessLevel:    level,
			BusinessSubLevel: sub,
			BusinessXP:       xp,
			UpgradeRequested: requested,
		},
	}
}

func TestAwardXPRecomputesSubLevel(t *testing.T) {
	biz := business(1, 1, 10, false)
	f := newFixture(t, biz)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	progress, err := f.svc.AwardXP(context.Background(), biz.ID, 45, "five reviews")
	require.NoError(t, err)

	assert.Equal(t, int64(55), progress.BusinessXP)
	assert.Equal(t, 3, progress.BusinessSubLevel)
	assert.Equal(t, int64(90), progress.NextSubLevelXP)
	require.Len(t, f.xp.events, 1)
	assert.Equal(t, int64(55), f.xp.events[0].XPAfter)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAwardXPRejectsInvalidInput(t *testing.T) {
	customer := &account.Account{ID: uuid.New(), Role: account.RoleCustomer}
	f := newFixture(t, customer)

	_, err := f.svc.AwardXP(context.Background(), customer.ID, 0, "nothing")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.AwardXP(context.Background(), customer.ID, 10, "wrong role")
	assert.ErrorIs(t, err, ErrNotBusiness)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.AwardXP(context.Background(), uuid.New(), 10, "nobody")
	assert.ErrorIs(t, err, ErrBusinessNotFound)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRequestUpgradeRequiresTopSubLevel(t *testing.T) {
	biz := business(2, 5, 150, false)
	f := newFixture(t, biz)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.RequestUpgrade(context.Background(), biz.ID)
	assert.ErrorIs(t, err, ErrNotEligible)
	assert.Empty(t, f.events.Events())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRequestUpgradeAtMaxLevelIsNotEligible(t *testing.T) {
	biz := business(account.MaxBusinessLevel, 9, 500, false)
	f := newFixture(t, biz)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.RequestUpgrade(context.Background(), biz.ID)
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestRequestUpgradeIsIdempotent(t *testing.T) {
	biz := business(2, 9, 450, false)
	f := newFixture(t, biz)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	first, err := f.svc.RequestUpgrade(context.Background(), biz.ID)
	require.NoError(t, err)
	assert.True(t, first.UpgradeRequested)
	assert.False(t, first.CanRequestUpgrade)

	second, err := f.svc.RequestUpgrade(context.Background(), biz.ID)
	require.NoError(t, err)
	assert.Equal(t, first.UpgradeRequestedAt, second.UpgradeRequestedAt)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notification.TypeUpgradeRequested, events[0].Type)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApproveUpgradeBumpsLevelAndResets(t *testing.T) {
	biz := business(2, 9, 450, true)
	admin := uuid.New()
	f := newFixture(t, biz)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	progress, err := f.svc.ApproveUpgrade(context.Background(), biz.ID, admin)
	require.NoError(t, err)

	assert.Equal(t, 3, progress.BusinessLevel)
	assert.Equal(t, 1, progress.BusinessSubLevel)
	assert.Equal(t, int64(0), progress.BusinessXP)
	assert.False(t, progress.UpgradeRequested)

	require.Len(t, f.audit.records, 1)
	rec := f.audit.records[0]
	assert.Equal(t, admin, rec.actor)
	assert.Equal(t, biz.ID, rec.target)
	assert.Equal(t, audit.ActionUpgradeApproved, rec.action)
	assert.Equal(t, 2, rec.oldValue.(account.BusinessProgress).BusinessLevel)

	stored, _ := f.accounts.GetByID(context.Background(), biz.ID)
	assert.Equal(t, 3, stored.BusinessLevel)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApproveUpgradeWithoutRequest(t *testing.T) {
	biz := business(2, 9, 450, false)
	f := newFixture(t, biz)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.ApproveUpgrade(context.Background(), biz.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNoPendingRequest)
	assert.Empty(t, f.audit.records)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRejectUpgradeKeepsLevelAndXP(t *testing.T) {
	biz := business(2, 9, 450, true)
	f := newFixture(t, biz)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	progress, err := f.svc.RejectUpgrade(context.Background(), biz.ID, uuid.New(), "  incomplete documents ")
	require.NoError(t, err)

	assert.Equal(t, 2, progress.BusinessLevel)
	assert.Equal(t, 9, progress.BusinessSubLevel)
	assert.Equal(t, int64(450), progress.BusinessXP)
	assert.False(t, progress.UpgradeRequested)
	assert.True(t, progress.CanRequestUpgrade)

	require.Len(t, f.audit.records, 1)
	assert.Equal(t, "incomplete documents", f.audit.records[0].reason)
	assert.Equal(t, audit.ActionUpgradeRejected, f.audit.records[0].action)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRejectUpgradeChecksReasonFirst(t *testing.T) {
	biz := business(2, 9, 450, false)
	f := newFixture(t, biz)

	_, err := f.svc.RejectUpgrade(context.Background(), biz.ID, uuid.New(), "   ")
	assert.ErrorIs(t, err, ErrMissingReason)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.RejectUpgrade(context.Background(), biz.ID, uuid.New(), "too early")
	assert.ErrorIs(t, err, ErrNoPendingRequest)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestListPendingUpgrades(t *testing.T) {
	waiting := business(3, 9, 460, true)
	idle := business(1, 2, 30, false)
	f := newFixture(t, waiting, idle)

	items, err := f.svc.ListPendingUpgrades(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, waiting.ID, items[0].BusinessID)
}

func TestGetProgressForCustomer(t *testing.T) {
	customer := &account.Account{ID: uuid.New(), Role: account.RoleCustomer}
	f := newFixture(t, customer)

	_, err := f.svc.GetProgress(context.Background(), customer.ID)
	assert.ErrorIs(t, err, ErrNotBusiness)
}
