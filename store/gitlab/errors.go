package gitlab

import (
	"errors"
	"fmt"
)

// Sentinel errors exposed for errors.Is matching.
var (
	// ErrNotFound wraps 404 responses on read
	// operations. Existence probes translate 404 to
	// a plain false instead.
	ErrNotFound = errors.New("not found")

	// ErrDecode wraps response bodies that do not
	// match the expected format.
	ErrDecode = errors.New("response decode failed")

	// ErrPermissionDenied is returned when the token
	// authenticates but lacks write access to the
	// repository.
	ErrPermissionDenied = errors.New(
		"insufficient repository access",
	)

	// ErrRebaseTimeout is returned when a rebase is
	// still in progress after the poll attempt cap.
	ErrRebaseTimeout = errors.New(
		"rebase still in progress after poll limit",
	)
)

// APIError is the single failure type for transport
// and HTTP-level errors. Status is zero when the
// request never reached the server.
type APIError struct {
	// Provider names the hosting service.
	Provider string
	// Status is the HTTP status code, or zero for
	// transport failures.
	Status int
	// Message is the provider-supplied error message
	// when one was parseable, else the raw body or
	// transport error text.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf(
			"%s: request failed: %s",
			e.Provider, e.Message,
		)
	}

	return fmt.Sprintf(
		"%s: %d: %s",
		e.Provider, e.Status, e.Message,
	)
}

// Unwrap exposes the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// WorkflowError reports a broken editorial-workflow
// invariant: a content key claims an in-progress
// change but no matching branch or merge request
// exists, or one exists in an invalid state.
type WorkflowError struct {
	// Key is the content key the caller asked about.
	Key string
	// Reason describes the violated invariant.
	Reason string
}

// Error implements the error interface.
func (e *WorkflowError) Error() string {
	return fmt.Sprintf(
		"editorial workflow: %s: %s",
		e.Key, e.Reason,
	)
}

// RebaseError carries a rebase or merge conflict
// message reported by the provider, verbatim.
type RebaseError struct {
	// Message is the provider's merge_error text.
	Message string
}

// Error implements the error interface.
func (e *RebaseError) Error() string {
	return fmt.Sprintf(
		"rebase failed: %s", e.Message,
	)
}
