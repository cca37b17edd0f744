package recipient

import "errors"

// Sentinel errors for the recipient service layer.
var (
	ErrNotFound          = errors.New("recipient not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)
