package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avkuzmin/linkhub/internal/models"
	"github.com/avkuzmin/linkhub/internal/server/storage"
)

func newTestSession(userID, tokenHash string) *models.Session {
	now := time.Now()
	return &models.Session{
		UserID:    userID,
		TokenHash: tokenHash,
		IssuedAt:  now,
		ExpiresAt: now.Add(30 * 24 * time.Hour),
	}
}

func TestSessionStorage_SaveSession(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	err := s.SaveSession(ctx, newTestSession(userID, "fp-1"))
	require.NoError(t, err)

	// Повторный login заменяет сессию того же пользователя
	err = s.SaveSession(ctx, newTestSession(userID, "fp-2"))
	require.NoError(t, err)

	// Старый fingerprint больше не находится
	_, err = s.GetSessionByTokenHash(ctx, "fp-1")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	got, err := s.GetSessionByTokenHash(ctx, "fp-2")
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
	assert.Empty(t, got.PrevTokenHash)
}

func TestSessionStorage_GetSessionByTokenHash(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	require.NoError(t, s.SaveSession(ctx, newTestSession(userID, "fp-current")))

	got, err := s.GetSessionByTokenHash(ctx, "fp-current")
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, "fp-current", got.TokenHash)

	_, err = s.GetSessionByTokenHash(ctx, "fp-unknown")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestSessionStorage_RotateSession(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	require.NoError(t, s.SaveSession(ctx, newTestSession(userID, "fp-old")))

	now := time.Now()
	err := s.RotateSession(ctx, userID, "fp-old", "fp-new", now, now.Add(24*time.Hour))
	require.NoError(t, err)

	// Текущий fingerprint заменен, старый сохранен как previous
	got, err := s.GetSessionByTokenHash(ctx, "fp-new")
	require.NoError(t, err)
	assert.Equal(t, "fp-old", got.PrevTokenHash)

	// Повторная ротация с тем же old fingerprint не проходит (CAS)
	err = s.RotateSession(ctx, userID, "fp-old", "fp-other", now, now.Add(24*time.Hour))
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	// Вытесненный fingerprint находится через prev-индекс
	got, err = s.GetSessionByPrevTokenHash(ctx, "fp-old")
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
}

func TestSessionStorage_RotateSession_Concurrent(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	require.NoError(t, s.SaveSession(ctx, newTestSession(userID, "fp-shared")))

	const attempts = 8
	now := time.Now()
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		go func(i int) {
			newHash := "fp-winner-" + string(rune('a'+i))
			results <- s.RotateSession(ctx, userID, "fp-shared", newHash, now, now.Add(24*time.Hour))
		}(i)
	}

	var succeeded, failed int
	for i := 0; i < attempts; i++ {
		if err := <-results; err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, storage.ErrSessionNotFound)
			failed++
		}
	}

	assert.Equal(t, 1, succeeded, "exactly one rotation must win")
	assert.Equal(t, attempts-1, failed)
}

func TestSessionStorage_DeleteSession(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	require.NoError(t, s.SaveSession(ctx, newTestSession(userID, "fp-del")))

	err := s.DeleteSession(ctx, userID)
	require.NoError(t, err)

	_, err = s.GetSessionByTokenHash(ctx, "fp-del")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	err = s.DeleteSession(ctx, userID)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestSessionStorage_DeleteExpiredSessions(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	expiredUser := createTestUser(t, ctx, s)
	activeUser := createTestUser(t, ctx, s)

	expired := newTestSession(expiredUser, "fp-expired")
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.SaveSession(ctx, expired))
	require.NoError(t, s.SaveSession(ctx, newTestSession(activeUser, "fp-active")))

	deleted, err := s.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = s.GetSessionByTokenHash(ctx, "fp-expired")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	_, err = s.GetSessionByTokenHash(ctx, "fp-active")
	assert.NoError(t, err)
}
