package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStatusChanged means the booking left the status the write was based on.
	ErrStatusChanged = errors.New("booking status changed concurrently")
)
