package scheduler

import (
	"errors"
	"fmt"
)

// Domain errors for the scheduler package.
var (
	// ErrInvalidOptions is returned by New when a required option is missing.
	ErrInvalidOptions = errors.New("scheduler: invalid options")

	// ErrRegistryNotSealed is returned by New before the registry is sealed.
	ErrRegistryNotSealed = errors.New("scheduler: registry not sealed")

	// ErrRetriesExhausted is matched by RetriesExhaustedError.
	ErrRetriesExhausted = errors.New("scheduler: retries exhausted")
)

// RetriesExhaustedError reports a request abandoned after its retry budget.
// It is logged and never fatal; the endpoint is tried again on its next turn.
type RetriesExhaustedError struct {
	ID       string
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("scheduler: %s: gave up after %d attempts: %v", e.ID, e.Attempts, e.Last)
}

// Unwrap returns the error of the last attempt.
func (e *RetriesExhaustedError) Unwrap() error { return e.Last }

// Is reports ErrRetriesExhausted.
func (e *RetriesExhaustedError) Is(target error) bool { return target == ErrRetriesExhausted }
