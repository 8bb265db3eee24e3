// Package errs defines the error taxonomy shared by the storage, search
// and API layers.
package errs

import "errors"

var (
	// ErrNotFound covers both an absent row and an access-denied read;
	// the two are deliberately indistinguishable to the caller.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned for write attempts without sufficient
	// privilege.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidArgument flags structurally malformed input. Semantically
	// odd but well-formed filters (inverted bounds) are not an error.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnavailable wraps storage failures. It is the only retryable
	// condition and retrying is the caller's responsibility.
	ErrUnavailable = errors.New("storage unavailable")
)
