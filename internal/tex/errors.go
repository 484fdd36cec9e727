package tex

import "errors"

// Sentinel errors for the conditions callers are expected to branch on.
// Anything else coming out of the service is an internal failure and is
// reported to clients without detail.
var (
	// ErrValidation marks missing or malformed caller input.
	ErrValidation = errors.New("validation failed")

	// ErrAuth marks an unknown or expired session token.
	ErrAuth = errors.New("invalid session")

	// ErrNotFound marks a resource that does not exist for the caller.
	// Ownership mismatches fold into this error so that a document owned
	// by someone else is indistinguishable from one that never existed.
	ErrNotFound = errors.New("not found")
)
