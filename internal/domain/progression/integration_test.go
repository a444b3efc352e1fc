package progression

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointhub/pointhub-api/internal/domain/account"
	"github.com/pointhub/pointhub-api/internal/domain/audit"
	"github.com/pointhub/pointhub-api/internal/domain/notification"
	"github.com/pointhub/pointhub-api/internal/pkg/database"
	"github.com/pointhub/pointhub-api/internal/pkg/database/dbtest"
)

func TestUpgradeCycleLeavesAuditTrail(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	auditSvc := audit.NewService(audit.NewRepository(db))
	svc := NewService(database.NewTxRunner(db, 5), account.NewRepository(db), NewRepository(db), auditSvc, notification.NopPublisher{})

	businessID := dbtest.CreateAccount(t, db, "business", 0)
	adminID := uuid.New()

	progress, err := svc.AwardXP(ctx, businessID, 500, "launch campaign")
	require.NoError(t, err)
	require.Equal(t, 9, progress.BusinessSubLevel)

	_, err = svc.RequestUpgrade(ctx, businessID)
	require.NoError(t, err)

	_, err = svc.RejectUpgrade(ctx, businessID, adminID, "missing tax id")
	require.NoError(t, err)

	_, err = svc.RequestUpgrade(ctx, businessID)
	require.NoError(t, err)

	progress, err = svc.ApproveUpgrade(ctx, businessID, adminID)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.BusinessLevel)
	assert.Equal(t, 1, progress.BusinessSubLevel)
	assert.Equal(t, int64(0), progress.BusinessXP)

	entries, total, err := auditSvc.List(ctx, audit.Filter{TargetID: &businessID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 2)
	actions := []string{entries[0].Action, entries[1].Action}
	assert.ElementsMatch(t, []string{audit.ActionUpgradeApproved, audit.ActionUpgradeRejected}, actions)

	events, err := svc.ListXPEvents(ctx, businessID, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(500), events[0].XPAfter)
}
