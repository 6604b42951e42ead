package bus

import "errors"

var (
	// ErrBusClosed is returned by operations on a closed bus.
	ErrBusClosed = errors.New("bus is closed")

	// ErrNilHandler is returned when subscribing without a handler.
	ErrNilHandler = errors.New("subscription handler is required")
)
