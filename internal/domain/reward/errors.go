package reward

import "errors"

var (
	ErrRewardNotFound    = errors.New("reward not found")
	ErrRewardInactive    = errors.New("reward is not active")
	ErrRewardNotStarted  = errors.New("reward is not yet available")
	ErrRewardExpired     = errors.New("reward has expired")
	ErrRewardSoldOut     = errors.New("reward is sold out")
	ErrEligibilityNotMet = errors.New("reward eligibility requirements not met")
	ErrNotRewardOwner    = errors.New("only the issuing business can manage this reward")

	// Input errors
	ErrInvalidAvailability = errors.New("total_available must be positive unless unlimited")
	ErrInvalidValidity     = errors.New("valid_from must be before valid_until")
	ErrInvalidTimeWindow   = errors.New("available_from_minute and available_to_minute must be set together")
)
