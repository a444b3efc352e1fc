package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies a ledger event fanned out to delivery workers
type Type string

const (
	TypePointsEarned        Type = "points:earned"
	TypeRewardRedeemed      Type = "reward:redeemed"
	TypeRedemptionUsed      Type = "redemption:used"
	TypeRedemptionApproved  Type = "redemption:approved"
	TypeRedemptionCancelled Type = "redemption:cancelled"
	TypeRedemptionExpired   Type = "redemption:expired"
	TypeStreakClaimed       Type = "streak:claimed"
	TypeUpgradeRequested    Type = "business:upgrade_requested"
	TypeUpgradeApproved     Type = "business:upgrade_approved"
	TypeUpgradeRejected     Type = "business:upgrade_rejected"
)

// Event is the payload published on the events channel
type Event struct {
	Type       Type                   `json:"type"`
	AccountID  uuid.UUID              `json:"account_id"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}
