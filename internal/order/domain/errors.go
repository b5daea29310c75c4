package domain

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrVersionConflict   = errors.New("order was modified concurrently")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError describes the first invalid field of a client request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
