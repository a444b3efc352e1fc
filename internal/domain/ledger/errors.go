package ledger

import "errors"

var (
	// ErrInsufficientBalance is returned when a debit would take the balance below zero
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned when the amount sign does not match the kind
	ErrInvalidAmount = errors.New("invalid amount")

	ErrInvalidKind        = errors.New("invalid transaction kind")
	ErrAccountNotFound    = errors.New("account not found")
	ErrSameAccount        = errors.New("cannot transfer points to the same account")
	ErrConversionTooSmall = errors.New("points are worth less than the smallest credit unit")
	ErrMissionClaimed     = errors.New("mission reward already claimed")
)
