package world

import (
	"fmt"
	"strings"
)

// LoadError collects every structural problem found while loading a world.
// errors.As reaches each individual error.
type LoadError struct {
	Errs []error
}

func (e *LoadError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("world load failed with %d error(s): %s", len(e.Errs), strings.Join(msgs, "; "))
}

func (e *LoadError) Unwrap() []error {
	return e.Errs
}

// DanglingTransitionError is a transition whose target is not a location.
type DanglingTransitionError struct {
	From   string
	Label  string
	Target string
}

func (e *DanglingTransitionError) Error() string {
	return fmt.Sprintf("transition %q from %q targets unknown location %q", e.Label, e.From, e.Target)
}

// DuplicateLocationError is a location id defined more than once.
type DuplicateLocationError struct {
	ID string
}

func (e *DuplicateLocationError) Error() string {
	return fmt.Sprintf("location %q is defined more than once", e.ID)
}

// MissingStartError is a start id that names no location.
type MissingStartError struct {
	Start string
}

func (e *MissingStartError) Error() string {
	if e.Start == "" {
		return "no start location configured"
	}
	return fmt.Sprintf("start location %q is not defined", e.Start)
}

// EmptyIDError is a location definition without an id.
type EmptyIDError struct {
	Index int
}

func (e *EmptyIDError) Error() string {
	return fmt.Sprintf("location definition #%d has no id", e.Index)
}

// InvalidGuardError is a guard that cannot be evaluated.
type InvalidGuardError struct {
	From   string
	Label  string
	Reason string
}

func (e *InvalidGuardError) Error() string {
	return fmt.Sprintf("transition %q from %q has an invalid guard: %s", e.Label, e.From, e.Reason)
}

// InvalidDefinitionError covers the remaining malformed location content.
type InvalidDefinitionError struct {
	LocationID string
	Reason     string
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("location %q: %s", e.LocationID, e.Reason)
}

// NotFoundError is a lookup of an id the graph does not contain.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("location %q not found", e.ID)
}

// InvalidTransitionError is a label that no transition of the location carries.
type InvalidTransitionError struct {
	From  string
	Label string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("no transition %q from %q", e.Label, e.From)
}

// GuardRejectedError is an existing transition whose guard is currently false.
type GuardRejectedError struct {
	From  string
	Label string
	Guard Guard
}

func (e *GuardRejectedError) Error() string {
	return fmt.Sprintf("transition %q from %q is blocked: requires %s", e.Label, e.From, e.Guard)
}
