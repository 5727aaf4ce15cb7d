package bus

import "errors"

// Domain-specific errors for the event bus.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidPattern is returned when a subscription pattern fails to compile.
	ErrInvalidPattern = errors.New("bus: invalid subscription pattern")

	// ErrNilHandler is returned when subscribing without a handler.
	ErrNilHandler = errors.New("bus: handler cannot be nil")

	// ErrDecode is returned when a payload is not a JSON object.
	ErrDecode = errors.New("bus: malformed event payload")

	// ErrShape is recorded on Unknown payloads whose data does not fit the
	// variant named by the event type.
	ErrShape = errors.New("bus: event data has unexpected shape")
)
