package auth

import "errors"

// Sentinel errors returned by the Service. Handlers map these to HTTP status
// codes; anything else is an internal error and must not leak detail to the
// caller.
var (
	// ErrInvalidInput means a required field was empty or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means no record exists for the email.
	ErrNotFound = errors.New("email not found")

	// ErrInvalidCode means the submitted code did not match the pending one.
	// Distinct from ErrExpired so clients know to retry entry, not re-issue.
	ErrInvalidCode = errors.New("invalid code")

	// ErrExpired means the session expiry is unset or in the past.
	ErrExpired = errors.New("session expired")

	// ErrStoreUnavailable wraps store read/write failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)
