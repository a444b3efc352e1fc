package streak

import "time"

const (
	BasePoints     int64 = 5
	WeeklyBonus    int64 = 5
	MaxWeeklyBonus int64 = 50

	// MaxClaimPoints is day 100: weekly cap reached plus the largest milestone
	MaxClaimPoints int64 = BasePoints + MaxWeeklyBonus + 1000
)

const daysPerWeek = 7

// milestoneBonuses pays once when the streak hits exactly that length
var milestoneBonuses = map[int]int64{
	3:   20,
	7:   50,
	14:  100,
	30:  250,
	60:  500,
	100: 1000,
}

// Reward is the outcome of one daily claim
type Reward struct {
	NewStreakLength  int   `json:"new_streak_length"`
	BasePoints       int64 `json:"base_points"`
	BonusPoints      int64 `json:"bonus_points"`
	MilestoneBonus   int64 `json:"milestone_bonus"`
	TotalPoints      int64 `json:"total_points"`
	MilestoneReached bool  `json:"milestone_reached"`
	// SameDay is set when today was already claimed; all point fields are zero.
	SameDay bool `json:"-"`
}

// Compute derives the streak reward for a claim made on today.
// lastClaim is nil for a first-ever claim. Only the calendar date of each argument,
// read in its own location, is used.
func Compute(previousLength int, lastClaim *time.Time, today time.Time) Reward {
	newLength := 1
	if lastClaim != nil {
		switch daysBetween(dateOf(*lastClaim), dateOf(today)) {
		case 0:
			return Reward{NewStreakLength: previousLength, SameDay: true}
		case 1:
			newLength = previousLength + 1
		}
	}

	bonus := int64(newLength/daysPerWeek) * WeeklyBonus
	if bonus > MaxWeeklyBonus {
		bonus = MaxWeeklyBonus
	}
	milestone, reached := milestoneBonuses[newLength]

	return Reward{
		NewStreakLength:  newLength,
		BasePoints:       BasePoints,
		BonusPoints:      bonus,
		MilestoneBonus:   milestone,
		TotalPoints:      BasePoints + bonus + milestone,
		MilestoneReached: reached,
	}
}

// CivilDay returns the calendar day t falls on in loc, as midnight UTC of that date.
func CivilDay(t time.Time, loc *time.Location) time.Time {
	return dateOf(t.In(loc))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days between two UTC midnights
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
