package endpoint

import (
	"errors"
	"fmt"
)

// Domain errors for the endpoint package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, endpoint.ErrOutOfRange) {
//	    // reject the write at the API boundary
//	}
var (
	// ErrUnknownEndpoint is returned when an endpoint ID is not registered.
	ErrUnknownEndpoint = errors.New("endpoint: not found")

	// ErrDuplicate is returned when registering an ID that already exists.
	ErrDuplicate = errors.New("endpoint: already registered")

	// ErrInvalidDescriptor is returned when descriptor validation fails.
	ErrInvalidDescriptor = errors.New("endpoint: invalid descriptor")

	// ErrNotWritable is returned when writing to a read-only endpoint.
	ErrNotWritable = errors.New("endpoint: not writable")

	// ErrRegistrySealed is returned when registering after Seal.
	ErrRegistrySealed = errors.New("endpoint: registry sealed")

	// ErrOutOfRange is matched by OutOfRangeError.
	ErrOutOfRange = errors.New("endpoint: value out of range")
)

// OutOfRangeError rejects a write outside the endpoint's declared bounds.
type OutOfRangeError struct {
	ID    string
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("endpoint: %s: value %g outside [%g, %g]", e.ID, e.Value, e.Min, e.Max)
}

// Unwrap returns ErrOutOfRange.
func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }
