package coach

import "errors"

var (
	// ErrUnknownStep is returned when a step identifier is not in the table.
	ErrUnknownStep = errors.New("unknown step")
	// ErrDetectorUnavailable wraps any failure from the detector during a
	// verification call.
	ErrDetectorUnavailable = errors.New("detector unavailable")
)
