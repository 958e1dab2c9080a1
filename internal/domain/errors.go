package domain

import "errors"

var (
	// ErrValidation marks input rejected before any persistence happens.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a filter list or CID row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNetwork wraps failures talking to a peer origin.
	ErrNetwork = errors.New("network error")

	// ErrUnauthorized is returned when a peer refuses the request.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPartialMove is returned when a CID reached its destination list
	// but could not be removed from its source list.
	ErrPartialMove = errors.New("cid copied to destination but not removed from source")
)
