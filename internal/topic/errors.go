package topic

import "errors"

// Domain-specific errors for pattern compilation.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrEmptyPattern is returned when compiling an empty pattern.
	ErrEmptyPattern = errors.New("topic: pattern cannot be empty")

	// ErrInvalidPattern is returned when a pattern breaks the wildcard rules.
	ErrInvalidPattern = errors.New("topic: invalid pattern")
)
