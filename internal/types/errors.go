package types

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed mutation input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an operation on an unknown identifier
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NewNotFound builds a NotFoundError for any identifier type
func NewNotFound(resource string, id interface{}) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: fmt.Sprint(id)}
}

// PersistenceError wraps a store-layer failure
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TranscriptFetchError reports that the transcript analysis service was
// unreachable, returned an error or exceeded the fetch timeout
type TranscriptFetchError struct {
	ContactID string
	Err       error
}

func (e *TranscriptFetchError) Error() string {
	return fmt.Sprintf("failed to fetch transcript for contact %q: %v", e.ContactID, e.Err)
}

func (e *TranscriptFetchError) Unwrap() error { return e.Err }

// BroadcastWarning is a non-fatal notification failure. It is logged and
// never returned to the caller of a mutation.
type BroadcastWarning struct {
	Event  string
	Stage  string   // "rebuild" or "deliver"
	Failed []string // subscriber ids that could not be reached
	Err    error
}

func (w *BroadcastWarning) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "broadcast %s: %s failed", w.Event, w.Stage)
	if len(w.Failed) > 0 {
		fmt.Fprintf(&b, " for %d subscriber(s)", len(w.Failed))
	}
	if w.Err != nil {
		fmt.Fprintf(&b, ": %v", w.Err)
	}
	return b.String()
}

func (w *BroadcastWarning) Unwrap() error { return w.Err }
