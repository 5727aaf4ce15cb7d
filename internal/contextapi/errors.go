package contextapi

import (
	"errors"
	"fmt"
)

// Domain-specific errors for the context API client.
var (
	// ErrRequestFailed is returned when the service answers with a non-2xx status
	// or cannot be reached.
	ErrRequestFailed = errors.New("contextapi: request failed")

	// ErrInvalidArgument is returned when a required argument is empty.
	ErrInvalidArgument = errors.New("contextapi: invalid argument")
)

// StatusError describes a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Unwrap makes errors.Is(err, ErrRequestFailed) hold.
func (e *StatusError) Unwrap() error {
	return ErrRequestFailed
}
