package auth

import "errors"

// Domain errors of the authentication core.
// Handlers map them to HTTP statuses; none of them reveals which half of
// a credential pair was wrong or whether an identifier exists.
var (
	// ErrInvalidCredentials indicates wrong email or password.
	// The same error is returned for both cases.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired indicates the refresh token is past its expiry;
	// the client must log in again
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionRevoked indicates the refresh token matches no active
	// session (logged out or superseded)
	ErrSessionRevoked = errors.New("session revoked")

	// ErrTokenReuse indicates a rotated-out refresh token was presented
	// again. Treated as a theft signal: the affected session is revoked
	// as a side effect.
	ErrTokenReuse = errors.New("refresh token reuse detected")

	// ErrUnavailable indicates the backing store did not answer within
	// the configured timeout; the request may be retried
	ErrUnavailable = errors.New("storage unavailable")
)
