package storage

import (
	"context"
	"time"

	"github.com/avkuzmin/linkhub/internal/models"
)

// SessionStorage defines interface for refresh-session persistence.
// Each user has at most one session record; all lookups by fingerprint
// must be O(1) (indexed).
type SessionStorage interface {
	// SaveSession stores a session record for session.UserID.
	// If the user already has a session, it is replaced (a new login
	// supersedes the previous one).
	SaveSession(ctx context.Context, session *models.Session) error

	// GetSessionByTokenHash retrieves the session whose current
	// fingerprint equals tokenHash.
	// Returns ErrSessionNotFound if no such session exists.
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)

	// GetSessionByPrevTokenHash retrieves the session whose rotated-out
	// fingerprint equals tokenHash. A hit means the presented token was
	// already rotated out — a reuse signal.
	// Returns ErrSessionNotFound if no such session exists.
	GetSessionByPrevTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)

	// RotateSession atomically replaces the session's fingerprint:
	// the update applies only if the stored fingerprint still equals
	// oldTokenHash (compare-and-swap). The replaced fingerprint is kept
	// as the session's previous fingerprint.
	// Returns ErrSessionNotFound if the session is gone or the stored
	// fingerprint no longer matches oldTokenHash — exactly one of two
	// concurrent rotations with the same oldTokenHash can succeed.
	RotateSession(ctx context.Context, userID, oldTokenHash, newTokenHash string, issuedAt, expiresAt time.Time) error

	// DeleteSession deletes the user's session record
	// Returns ErrSessionNotFound if no session exists
	DeleteSession(ctx context.Context, userID string) error

	// DeleteExpiredSessions removes all sessions past their expiry
	// Returns number of deleted sessions
	DeleteExpiredSessions(ctx context.Context) (int, error)
}
