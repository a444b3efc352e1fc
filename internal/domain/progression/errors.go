package progression

import "errors"

var (
	ErrBusinessNotFound = errors.New("business not found")
	ErrNotBusiness      = errors.New("account is not a business")
	ErrInvalidAmount    = errors.New("xp amount must be positive")
	ErrNotEligible      = errors.New("business is not eligible for an upgrade")
	ErrNoPendingRequest = errors.New("no pending upgrade request")
	ErrMissingReason    = errors.New("rejection reason is required")
)
