package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avkuzmin/linkhub/internal/models"
	"github.com/avkuzmin/linkhub/internal/server/storage"
)

// SaveSession stores a session record, replacing any existing session
// for the same user (a new login supersedes the old one)
func (s *Storage) SaveSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (user_id, token_hash, prev_token_hash, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			token_hash = excluded.token_hash,
			prev_token_hash = excluded.prev_token_hash,
			issued_at = excluded.issued_at,
			expires_at = excluded.expires_at
	`

	_, err := s.db.ExecContext(ctx, query,
		session.UserID,
		session.TokenHash,
		session.PrevTokenHash,
		session.IssuedAt,
		session.ExpiresAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSessionByTokenHash retrieves the session by its current fingerprint
func (s *Storage) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	query := `
		SELECT user_id, token_hash, prev_token_hash, issued_at, expires_at
		FROM sessions
		WHERE token_hash = ?
	`

	return s.scanSession(s.db.QueryRowContext(ctx, query, tokenHash))
}

// GetSessionByPrevTokenHash retrieves the session by its rotated-out fingerprint
func (s *Storage) GetSessionByPrevTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	query := `
		SELECT user_id, token_hash, prev_token_hash, issued_at, expires_at
		FROM sessions
		WHERE prev_token_hash = ? AND prev_token_hash != ''
	`

	return s.scanSession(s.db.QueryRowContext(ctx, query, tokenHash))
}

// RotateSession atomically swaps the session fingerprint via a conditional
// update: the write applies only if the stored fingerprint still equals
// oldTokenHash. Under concurrent rotations with the same oldTokenHash
// exactly one update matches; the rest see ErrSessionNotFound.
func (s *Storage) RotateSession(ctx context.Context, userID, oldTokenHash, newTokenHash string, issuedAt, expiresAt time.Time) error {
	query := `
		UPDATE sessions
		SET token_hash = ?, prev_token_hash = ?, issued_at = ?, expires_at = ?
		WHERE user_id = ? AND token_hash = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		newTokenHash,
		oldTokenHash,
		issuedAt,
		expiresAt,
		userID,
		oldTokenHash,
	)
	if err != nil {
		return fmt.Errorf("failed to rotate session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrSessionNotFound
	}

	return nil
}

// DeleteSession deletes the user's session record
func (s *Storage) DeleteSession(ctx context.Context, userID string) error {
	query := `DELETE FROM sessions WHERE user_id = ?`

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrSessionNotFound
	}

	return nil
}

// DeleteExpiredSessions removes all sessions past their expiry
func (s *Storage) DeleteExpiredSessions(ctx context.Context) (int, error) {
	query := `DELETE FROM sessions WHERE expires_at < ?`

	result, err := s.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// scanSession читает одну строку sessions
func (s *Storage) scanSession(row *sql.Row) (*models.Session, error) {
	session := &models.Session{}

	err := row.Scan(
		&session.UserID,
		&session.TokenHash,
		&session.PrevTokenHash,
		&session.IssuedAt,
		&session.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}
