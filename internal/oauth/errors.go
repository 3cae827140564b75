package oauth

import "errors"

// Handshake errors. Callers branch on them with errors.Is to pick the message
// shown to the user.
var (
	// ErrMissingState is returned when the callback carries no state at all.
	// It wraps ErrInvalidState.
	ErrMissingState = &stateError{msg: "missing OAuth state"}

	// ErrInvalidState is returned for a state that was never issued or has
	// already been consumed.
	ErrInvalidState = errors.New("invalid OAuth state")

	// ErrExpiredState is returned for a state issued longer than the TTL ago.
	ErrExpiredState = errors.New("OAuth state expired")

	// ErrMissingCode is returned when the callback carries no authorization code.
	ErrMissingCode = errors.New("missing authorization code")

	// ErrExchangeFailed wraps failures of the authorization code exchange.
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// ErrIdentityFailed wraps failures to resolve the user's identity.
	ErrIdentityFailed = errors.New("failed to resolve user identity")

	// ErrPersistFailed wraps failures to store the obtained grant.
	ErrPersistFailed = errors.New("failed to store credentials")
)

type stateError struct {
	msg string
}

func (e *stateError) Error() string { return e.msg }

func (e *stateError) Unwrap() error { return ErrInvalidState }
