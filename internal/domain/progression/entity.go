package progression

import (
	"time"

	"github.com/google/uuid"

	"github.com/pointhub/pointhub-api/internal/domain/account"
)

// XPEvent is one XP grant kept for audit
type XPEvent struct {
	ID         uuid.UUID `db:"id" json:"id"`
	BusinessID uuid.UUID `db:"business_id" json:"business_id"`
	Amount     int64     `db:"amount" json:"amount"`
	Reason     string    `db:"reason" json:"reason"`
	XPAfter    int64     `db:"xp_after" json:"xp_after"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Progress is a business's position on the level ladder
type Progress struct {
	BusinessID uuid.UUID `json:"business_id"`
	account.BusinessProgress

	NextSubLevelXP    int64 `json:"next_sub_level_xp"`
	CanRequestUpgrade bool  `json:"can_request_upgrade"`
}

func progressOf(a *account.Account) *Progress {
	return &Progress{
		BusinessID:        a.ID,
		BusinessProgress:  a.BusinessProgress,
		NextSubLevelXP:    NextThreshold(a.BusinessXP),
		CanRequestUpgrade: CanRequestUpgrade(a.BusinessProgress) && !a.UpgradeRequested,
	}
}
