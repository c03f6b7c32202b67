package errors

import "errors"

var (
	ErrNotFound = errors.New("car not found")

	ErrInvalidID = errors.New("invalid car ID format")

	ErrDuplicateLicensePlate = errors.New("license plate already registered")

	ErrTooManyImages = errors.New("car image limit reached")
)
