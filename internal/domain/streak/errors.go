package streak

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")

	// errSameDay rolls back a claim whose account already records today's reward
	errSameDay = errors.New("streak already claimed today")
)
