package transport

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for link operations.
var (
	// ErrIO is the parent of every write or read failure on the port.
	ErrIO = errors.New("transport: serial I/O failed")

	// ErrTimeout is matched by TimeoutError.
	ErrTimeout = errors.New("transport: receive timed out")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("transport: link closed")

	// ErrOpenFailed is returned when the serial device cannot be opened.
	ErrOpenFailed = errors.New("transport: open failed")
)

// IOError wraps a port failure with the operation that caused it.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

// Unwrap returns the port error.
func (e *IOError) Unwrap() error { return e.Err }

// Is reports ErrIO so callers can match any I/O failure.
func (e *IOError) Is(target error) bool { return target == ErrIO }

// TimeoutError reports that a complete frame did not arrive in time.
type TimeoutError struct {
	Expected int
	Received int
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transport: receive timed out after %v (%d of %d bytes)", e.After, e.Received, e.Expected)
}

// Timeout marks the error as a timeout, matching the net.Error convention.
func (e *TimeoutError) Timeout() bool { return true }

// Is reports ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }
