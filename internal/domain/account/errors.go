package account

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidRole     = errors.New("invalid account role")
	ErrInternal        = errors.New("internal error")
)
