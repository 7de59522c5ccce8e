package environment

import "fmt"

// ComputationError reports that a context could not be drawn for a key.
// Nothing is cached when it is returned, so the caller may retry.
type ComputationError struct {
	LocationID string
	WindowID   int64
	Err        error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("compute environment for %q in window %d: %v", e.LocationID, e.WindowID, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}
