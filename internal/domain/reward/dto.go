package reward

import (
	"time"

	"github.com/google/uuid"
)

// CreateRewardRequest for POST /rewards
type CreateRewardRequest struct {
	Title          string `json:"title" validate:"required,min=3,max=200"`
	Description    string `json:"description" validate:"omitempty,max=2000"`
	PointsCost     int64  `json:"points_cost" validate:"required,gt=0"`
	TotalAvailable int    `json:"total_available" validate:"gte=0"`
	Unlimited      bool   `json:"unlimited"`

	ValidFrom  *time.Time `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until"`
	ExpiresAt  *time.Time `json:"expires_at"`

	AvailableDays       []int `json:"available_days" validate:"omitempty,weekday_list"`
	AvailableFromMinute *int  `json:"available_from_minute" validate:"omitempty,gte=0,lte=1439"`
	AvailableToMinute   *int  `json:"available_to_minute" validate:"omitempty,gte=0,lte=1439"`
	LevelRequired       int   `json:"level_required" validate:"omitempty,gte=1,lte=6"`
}

// SetActiveRequest for PATCH /rewards/{id}/active
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type RewardResponse struct {
	ID             uuid.UUID `json:"id"`
	BusinessID     uuid.UUID `json:"business_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	PointsCost     int64     `json:"points_cost"`
	TotalAvailable int       `json:"total_available"`
	Claimed        int       `json:"claimed"`
	Remaining      int       `json:"remaining"`
	Unlimited      bool      `json:"unlimited"`
	Active         bool      `json:"active"`

	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`

	AvailableDays       []int64 `json:"available_days,omitempty"`
	AvailableFromMinute *int32  `json:"available_from_minute,omitempty"`
	AvailableToMinute   *int32  `json:"available_to_minute,omitempty"`
	LevelRequired       int     `json:"level_required"`

	CreatedAt time.Time `json:"created_at"`
}

func RewardResponseFromEntity(r *Reward) *RewardResponse {
	resp := &RewardResponse{
		ID:             r.ID,
		BusinessID:     r.BusinessID,
		Title:          r.Title,
		Description:    r.Description,
		PointsCost:     r.PointsCost,
		TotalAvailable: r.TotalAvailable,
		Claimed:        r.Claimed,
		Remaining:      r.Remaining(),
		Unlimited:      r.Unlimited,
		Active:         r.Active,
		AvailableDays:  r.AvailableDays,
		LevelRequired:  r.LevelRequired,
		CreatedAt:      r.CreatedAt,
	}

	if r.ValidFrom.Valid {
		resp.ValidFrom = &r.ValidFrom.Time
	}
	if r.ValidUntil.Valid {
		resp.ValidUntil = &r.ValidUntil.Time
	}
	if r.ExpiresAt.Valid {
		resp.ExpiresAt = &r.ExpiresAt.Time
	}
	if r.AvailableFromMinute.Valid {
		resp.AvailableFromMinute = &r.AvailableFromMinute.Int32
	}
	if r.AvailableToMinute.Valid {
		resp.AvailableToMinute = &r.AvailableToMinute.Int32
	}

	return resp
}
