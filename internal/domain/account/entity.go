package account

import (
	"time"

	"github.com/google/uuid"
)

// Role is the actor type of a ledger participant
type Role string

const (
	RoleCustomer Role = "customer"
	RoleBusiness Role = "business"
	RoleCreator  Role = "creator"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleBusiness, RoleCreator, RoleAdmin:
		return true
	}
	return false
}

const (
	MaxBusinessLevel    = 6
	MaxBusinessSubLevel = 9
)

// StreakRecord tracks consecutive daily logins.
// LastStreakRewardClaimed is a calendar date (midnight UTC of the streak-zone day).
type StreakRecord struct {
	LoginStreak             int        `db:"login_streak" json:"login_streak"`
	LongestLoginStreak      int        `db:"longest_login_streak" json:"longest_login_streak"`
	LastLoginAt             *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	LastStreakRewardClaimed *time.Time `db:"last_streak_reward_claimed" json:"last_streak_reward_claimed,omitempty"`
	TotalStreakPointsEarned int64      `db:"total_streak_points_earned" json:"total_streak_points_earned"`
}

// BusinessProgress is meaningful for business accounts only
type BusinessProgress struct {
	BusinessLevel      int        `db:"business_level" json:"business_level"`
	BusinessSubLevel   int        `db:"business_sub_level" json:"business_sub_level"`
	BusinessXP         int64      `db:"business_xp" json:"business_xp"`
	UpgradeRequested   bool       `db:"upgrade_requested" json:"upgrade_requested"`
	UpgradeRequestedAt *time.Time `db:"upgrade_requested_at" json:"upgrade_requested_at,omitempty"`
}

// Account is one row of the accounts table. PointBalance is written only by the ledger.
type Account struct {
	ID                uuid.UUID `db:"id" json:"id"`
	Role              Role      `db:"role" json:"role"`
	PointBalance      int64     `db:"point_balance" json:"point_balance"`
	TotalPointsEarned int64     `db:"total_points_earned" json:"total_points_earned"`

	StreakRecord     `json:"streak"`
	BusinessProgress `json:"business_progress"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsBusiness returns true if the account belongs to a business
func (a *Account) IsBusiness() bool {
	return a.Role == RoleBusiness
}

// Level is the tier rewards are gated on: the progression level for businesses,
// a lifetime-earnings tier for everybody else.
func (a *Account) Level() int {
	if a.IsBusiness() {
		return a.BusinessLevel
	}
	return LevelForPoints(a.TotalPointsEarned)
}

var customerLevelThresholds = []int64{0, 500, 2000, 5000, 10000, 25000}

// LevelForPoints maps lifetime points earned to a 1..6 tier.
func LevelForPoints(totalEarned int64) int {
	level := 0
	for _, threshold := range customerLevelThresholds {
		if totalEarned >= threshold {
			level++
		}
	}
	if level == 0 {
		return 1
	}
	return level
}
