package errors

import "errors"

var (
	ErrNotFound = errors.New("payment not found")

	ErrInvalidID = errors.New("invalid payment ID format")

	ErrDuplicateTransaction = errors.New("transaction id already recorded")
)
