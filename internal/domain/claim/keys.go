package claim

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const dayLayout = "2006-01-02"

// MissionKey guards one award per mission per account
func MissionKey(missionID string) string {
	return "mission:" + missionID
}

// StreakKey guards one streak claim per calendar day
func StreakKey(accountID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("streak:%s:%s", accountID, day.Format(dayLayout))
}

// RedemptionClickKey buckets repeated redeem clicks into windows of the given size
func RedemptionClickKey(userID, rewardID uuid.UUID, at time.Time, window time.Duration) string {
	bucket := int64(0)
	if window > 0 {
		bucket = at.UnixNano() / int64(window)
	}
	return fmt.Sprintf("redemption:%s:%s:%d", userID, rewardID, bucket)
}
