package reward

import (
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func baseReward() *Reward {
	return &Reward{
		PointsCost:     60,
		TotalAvailable: 10,
		Claimed:        3,
		Active:         true,
		LevelRequired:  1,
	}
}

func TestCheckRedeemableOrder(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		name   string
		mutate func(r *Reward)
		level  int
		want   error
	}{
		{"redeemable", func(r *Reward) {}, 1, nil},
		{"inactive wins over sold out", func(r *Reward) { r.Active = false; r.Claimed = 10 }, 1, ErrRewardInactive},
		{"not started", func(r *Reward) { r.ValidFrom = sql.NullTime{Time: now.Add(time.Hour), Valid: true} }, 1, ErrRewardNotStarted},
		{"past valid until", func(r *Reward) { r.ValidUntil = sql.NullTime{Time: now.Add(-time.Minute), Valid: true} }, 1, ErrRewardExpired},
		{"past expires at", func(r *Reward) { r.ExpiresAt = sql.NullTime{Time: now, Valid: true} }, 1, ErrRewardExpired},
		{"sold out", func(r *Reward) { r.Claimed = 10 }, 1, ErrRewardSoldOut},
		{"unlimited never sells out", func(r *Reward) { r.Unlimited = true; r.TotalAvailable = 0; r.Claimed = 500 }, 1, nil},
		{"level too low", func(r *Reward) { r.LevelRequired = 3 }, 2, ErrEligibilityNotMet},
		{"wrong weekday", func(r *Reward) { r.AvailableDays = pq.Int64Array{0, 6} }, 1, ErrEligibilityNotMet},
		{"right weekday", func(r *Reward) { r.AvailableDays = pq.Int64Array{3} }, 1, nil},
		{"outside hours", func(r *Reward) {
			r.AvailableFromMinute = sql.NullInt32{Int32: 8 * 60, Valid: true}
			r.AvailableToMinute = sql.NullInt32{Int32: 11 * 60, Valid: true}
		}, 1, ErrEligibilityNotMet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := baseReward()
			tt.mutate(r)
			assert.Equal(t, tt.want, r.CheckRedeemable(tt.level, now, time.UTC))
		})
	}
}

func TestCheckRedeemableUsesLocation(t *testing.T) {
	r := baseReward()
	r.AvailableDays = pq.Int64Array{4} // Thursday

	// Wednesday 22:00 UTC is already Thursday at UTC+5
	now := time.Date(2026, 3, 4, 22, 0, 0, 0, time.UTC)
	plus5 := time.FixedZone("UTC+5", 5*60*60)

	assert.ErrorIs(t, r.CheckRedeemable(1, now, time.UTC), ErrEligibilityNotMet)
	assert.NoError(t, r.CheckRedeemable(1, now, plus5))
}

func TestInMinuteWindow(t *testing.T) {
	assert.True(t, inMinuteWindow(600, 540, 1020))
	assert.False(t, inMinuteWindow(1020, 540, 1020))
	assert.True(t, inMinuteWindow(1380, 1320, 120))
	assert.True(t, inMinuteWindow(60, 1320, 120))
	assert.False(t, inMinuteWindow(600, 1320, 120))
	assert.True(t, inMinuteWindow(0, 300, 300))
}

func TestEndsAtPicksEarliest(t *testing.T) {
	r := baseReward()
	_, ok := r.EndsAt()
	assert.False(t, ok)

	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.ValidUntil = sql.NullTime{Time: early.Add(48 * time.Hour), Valid: true}
	r.ExpiresAt = sql.NullTime{Time: early, Valid: true}

	end, ok := r.EndsAt()
	assert.True(t, ok)
	assert.Equal(t, early, end)
}

func TestRemaining(t *testing.T) {
	r := baseReward()
	assert.Equal(t, 7, r.Remaining())
	r.Claimed = 12
	assert.Equal(t, 0, r.Remaining())
	r.Unlimited = true
	assert.Equal(t, -1, r.Remaining())
}
