package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrSessionNotFound indicates that no session record matched the lookup
	// (or, for RotateSession, that the expected fingerprint no longer matches)
	ErrSessionNotFound = errors.New("session not found")
)
