package claim

import "errors"

var (
	ErrEmptyKey  = errors.New("claim key is required")
	ErrDuplicate = errors.New("duplicate request")
)
