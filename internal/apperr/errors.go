// Package apperr defines the application error taxonomy. Services wrap these
// sentinels with fmt.Errorf("%w: ...") and handlers translate them to HTTP
// statuses with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation marks malformed input: bad address, username or amount.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a username with no resolvable owner, or a missing record.
	ErrNotFound = errors.New("not found")

	// ErrNetworkMismatch marks a wallet connected to the wrong chain where the
	// switch was rejected or could not be completed.
	ErrNetworkMismatch = errors.New("network mismatch")

	// ErrUsernameTaken marks a username claimed by another wallet at commit
	// time, even if an earlier availability check passed.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrExternalService marks a chain client or persistence backend failure.
	ErrExternalService = errors.New("external service failure")

	// ErrConfiguration marks missing credentials required by the agent endpoint.
	ErrConfiguration = errors.New("missing configuration")
)
