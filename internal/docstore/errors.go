package docstore

import "errors"

// Common errors returned by document store operations.
var (
	// ErrInvalidCollection indicates an empty or malformed collection name.
	ErrInvalidCollection = errors.New("invalid collection name")

	// ErrInvalidFilterKey indicates a filter key that is not a plain
	// top-level field identifier.
	ErrInvalidFilterKey = errors.New("invalid filter key")

	// ErrInvalidPath indicates a write-set key with an empty path segment
	// (leading, trailing, or doubled dot).
	ErrInvalidPath = errors.New("invalid document path")

	// ErrInvalidCounter indicates an empty counter name.
	ErrInvalidCounter = errors.New("invalid counter name")

	// ErrNotFound indicates that no document matched the filter.
	ErrNotFound = errors.New("document not found")
)
