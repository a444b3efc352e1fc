package redemption

import (
	"time"

	"github.com/google/uuid"

	"github.com/pointhub/pointhub-api/internal/domain/ledger"
)

type RedemptionResponse struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	RewardID    uuid.UUID  `json:"reward_id"`
	BusinessID  uuid.UUID  `json:"business_id"`
	PointsSpent int64      `json:"points_spent"`
	CouponCode  string     `json:"coupon_code"`
	Status      Status     `json:"status"`
	RedeemedAt  time.Time  `json:"redeemed_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	UsedBy      *uuid.UUID `json:"used_by,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// RedemptionResponseFromEntity reports the status as of now, so a redemption past its
// deadline reads as EXPIRED before the sweep reaches it.
func RedemptionResponseFromEntity(rd *Redemption, now time.Time) *RedemptionResponse {
	resp := &RedemptionResponse{
		ID:          rd.ID,
		UserID:      rd.UserID,
		RewardID:    rd.RewardID,
		BusinessID:  rd.BusinessID,
		PointsSpent: rd.PointsSpent,
		CouponCode:  rd.CouponCode,
		Status:      rd.EffectiveStatus(now),
		RedeemedAt:  rd.RedeemedAt,
		ExpiresAt:   rd.ExpiresAt,
	}

	if rd.ApprovedAt.Valid {
		resp.ApprovedAt = &rd.ApprovedAt.Time
	}
	if rd.UsedAt.Valid {
		resp.UsedAt = &rd.UsedAt.Time
	}
	if rd.UsedBy.Valid {
		resp.UsedBy = &rd.UsedBy.UUID
	}
	if rd.CancelledAt.Valid {
		resp.CancelledAt = &rd.CancelledAt.Time
	}
	if rd.ExpiredAt.Valid {
		resp.ExpiredAt = &rd.ExpiredAt.Time
	}

	return resp
}

// RedemptionDetailResponse adds the point movements behind the redemption
type RedemptionDetailResponse struct {
	*RedemptionResponse
	Legs []ledger.Transaction `json:"legs"`
}

type SweepResponse struct {
	Expired int `json:"expired"`
}
