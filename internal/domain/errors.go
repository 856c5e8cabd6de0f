package domain

import "errors"

// Sentinel errors for the service boundary. Anything that does not wrap one
// of these is treated as an unknown failure and surfaced verbatim.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("operation not allowed in current status")
	ErrCapacityExceeded = errors.New("not enough seats available")
	ErrUnauthorized     = errors.New("not authorized")
	ErrDuplicateBooking = errors.New("active booking already exists for this trip")
	ErrAlreadyExists    = errors.New("already exists")
)
