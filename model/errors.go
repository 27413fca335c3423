package model

import "errors"

var (
	// ErrInvalidAttributes marks track attributes that could not be used
	// as-is. Embedding recovers from this locally by substituting neutral
	// defaults; it is surfaced only when the whole record is unusable.
	ErrInvalidAttributes = errors.New("invalid track attributes")

	// ErrDimensionMismatch is returned when an embedding's length does not
	// match its scheme's declared dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIndexUnavailable is returned when the vector store cannot be
	// reached. Recommendation cannot proceed without it.
	ErrIndexUnavailable = errors.New("similarity index unavailable")

	ErrStationNotFound = errors.New("station not found")
	ErrTrackNotFound   = errors.New("track not found")
	ErrUserNotFound    = errors.New("user not found")
)
