package reward

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const minutesPerDay = 24 * 60

// Reward is a business-issued offer customers pay points for.
// Claimed never exceeds TotalAvailable unless Unlimited.
type Reward struct {
	ID             uuid.UUID `db:"id"`
	BusinessID     uuid.UUID `db:"business_id"`
	Title          string    `db:"title"`
	Description    string    `db:"description"`
	PointsCost     int64     `db:"points_cost"`
	TotalAvailable int       `db:"total_available"`
	Claimed        int       `db:"claimed"`
	Unlimited      bool      `db:"unlimited"`
	Active         bool      `db:"active"`

	// Validity window
	ValidFrom  sql.NullTime `db:"valid_from"`
	ValidUntil sql.NullTime `db:"valid_until"`
	ExpiresAt  sql.NullTime `db:"expires_at"`

	// Eligibility windows: weekdays 0=Sunday..6, minutes since local midnight
	AvailableDays       pq.Int64Array `db:"available_days"`
	AvailableFromMinute sql.NullInt32 `db:"available_from_minute"`
	AvailableToMinute   sql.NullInt32 `db:"available_to_minute"`
	LevelRequired       int           `db:"level_required"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Remaining returns units left, or -1 for unlimited rewards
func (r *Reward) Remaining() int {
	if r.Unlimited {
		return -1
	}
	if left := r.TotalAvailable - r.Claimed; left > 0 {
		return left
	}
	return 0
}

func (r *Reward) SoldOut() bool {
	return !r.Unlimited && r.Claimed >= r.TotalAvailable
}

// EndsAt is the earliest of ValidUntil and ExpiresAt.
func (r *Reward) EndsAt() (time.Time, bool) {
	var end time.Time
	found := false
	for _, t := range []sql.NullTime{r.ValidUntil, r.ExpiresAt} {
		if t.Valid && (!found || t.Time.Before(end)) {
			end, found = t.Time, true
		}
	}
	return end, found
}

// CheckRedeemable applies the redemption preconditions in order:
// inactive, outside the validity window, sold out, level or time window not met.
// now is interpreted in loc for the weekday and time-of-day windows.
func (r *Reward) CheckRedeemable(level int, now time.Time, loc *time.Location) error {
	if !r.Active {
		return ErrRewardInactive
	}
	if r.ValidFrom.Valid && now.Before(r.ValidFrom.Time) {
		return ErrRewardNotStarted
	}
	if end, ok := r.EndsAt(); ok && !now.Before(end) {
		return ErrRewardExpired
	}
	if r.SoldOut() {
		return ErrRewardSoldOut
	}
	if level < r.LevelRequired {
		return ErrEligibilityNotMet
	}
	if !r.availableAt(now.In(loc)) {
		return ErrEligibilityNotMet
	}
	return nil
}

func (r *Reward) availableAt(local time.Time) bool {
	if len(r.AvailableDays) > 0 {
		today := int64(local.Weekday())
		found := false
		for _, d := range r.AvailableDays {
			if d == today {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if !r.AvailableFromMinute.Valid || !r.AvailableToMinute.Valid {
		return true
	}
	return inMinuteWindow(local.Hour()*60+local.Minute(), int(r.AvailableFromMinute.Int32), int(r.AvailableToMinute.Int32))
}

// inMinuteWindow reports whether m falls in [from, to). A window with from > to
// wraps past midnight; from == to covers the whole day.
func inMinuteWindow(m, from, to int) bool {
	m %= minutesPerDay
	switch {
	case from == to:
		return true
	case from < to:
		return m >= from && m < to
	default:
		return m >= from || m < to
	}
}
