package redemption

import "errors"

var (
	ErrRedemptionNotFound  = errors.New("redemption not found")
	ErrInvalidTransition   = errors.New("invalid redemption status transition")
	ErrUnauthorized        = errors.New("not allowed to act on this redemption")
	ErrRedemptionExpired   = errors.New("redemption has expired")
	ErrOwnReward           = errors.New("business cannot redeem its own reward")
	ErrDuplicateRedemption = errors.New("redemption already in progress")
)
