// Package apperr defines the error kinds shared by the access-control core.
//
// Components wrap these with context ("%w: device name must be 1-100
// characters") so callers match with errors.Is and still get a message
// fit for the user. Storage failures are never wrapped in one of these
// kinds; they surface as plain internal errors.
package apperr

import "errors"

// Error kinds.
var (
	// ErrForbidden: the caller's role does not allow the mutation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput: malformed arguments (name length, sequence or token shape).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound: the entity does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrPoolEmpty: no unclaimed broker credential is left.
	ErrPoolEmpty = errors.New("credential pool exhausted")

	// ErrAlreadyAcceptedOrExpired: the invitation is no longer pending.
	ErrAlreadyAcceptedOrExpired = errors.New("invitation already accepted or expired")

	// ErrLastAdmin: the change would leave the workspace without an admin.
	ErrLastAdmin = errors.New("workspace must keep at least one admin")
)

// Kind returns the sentinel kind err wraps, or nil when it wraps none.
func Kind(err error) error {
	for _, kind := range []error{
		ErrForbidden,
		ErrInvalidInput,
		ErrNotFound,
		ErrPoolEmpty,
		ErrAlreadyAcceptedOrExpired,
		ErrLastAdmin,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
