package store

import "errors"

var (
	// ErrDimensionMismatch is returned when a vector's length disagrees with
	// the store's configured dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidCollection is returned for collection names that are empty
	// or would not survive use as an identifier.
	ErrInvalidCollection = errors.New("invalid collection name")
)
