package progression

import "github.com/pointhub/pointhub-api/internal/domain/account"

// subLevelThresholds are the XP marks a business crosses on its way from sub-level 1 to 9.
var subLevelThresholds = []int64{0, 20, 50, 90, 140, 200, 270, 350, 440}

// SubLevelForXP counts the thresholds xp has reached, capped at the top sub-level.
func SubLevelForXP(xp int64) int {
	sub := 0
	for _, threshold := range subLevelThresholds {
		if xp >= threshold {
			sub++
		}
	}
	if sub < 1 {
		return 1
	}
	if sub > account.MaxBusinessSubLevel {
		return account.MaxBusinessSubLevel
	}
	return sub
}

// NextThreshold returns the XP needed for the next sub-level, or -1 at the top.
func NextThreshold(xp int64) int64 {
	for _, threshold := range subLevelThresholds {
		if xp < threshold {
			return threshold
		}
	}
	return -1
}

// CanRequestUpgrade reports whether p sits at the top sub-level below the level cap.
func CanRequestUpgrade(p account.BusinessProgress) bool {
	return p.BusinessSubLevel == account.MaxBusinessSubLevel && p.BusinessLevel < account.MaxBusinessLevel
}
