package auth

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avkuzmin/linkhub/internal/models"
	"github.com/avkuzmin/linkhub/internal/server/storage/sqlite"
)

func setupTestService(t *testing.T) (*Service, *sqlite.Storage) {
	t.Helper()

	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	svc := NewService(logger, s, s, testTokenConfig(), 2*time.Second)
	return svc, s
}

func registerTestUser(t *testing.T, svc *Service) *models.User {
	t.Helper()

	user, err := svc.Register(context.Background(), "owner@example.com", "correct-horse")
	require.NoError(t, err)
	return user
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	user, err := svc.Register(ctx, "owner@example.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	// Пароль не хранится в открытом виде
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
	assert.Contains(t, user.PasswordHash, "$2a$")
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	registerTestUser(t, svc)

	t.Run("valid credentials", func(t *testing.T) {
		pair, err := svc.Login(ctx, "owner@example.com", "correct-horse")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Positive(t, pair.ExpiresIn)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "owner@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email fails with the same error kind", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", "correct-horse")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestService_LoginIssuedTokensAreAccepted(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	user := registerTestUser(t, svc)

	pair, err := svc.Login(ctx, "owner@example.com", "correct-horse")
	require.NoError(t, err)

	// Access token принимается тем же процессом, что его выпустил
	claims, err := ValidateAccessToken(testTokenConfig(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)

	// Refresh token принимается refresh-потоком
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestService_RefreshRotation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	registerTestUser(t, svc)

	pair, err := svc.Login(ctx, "owner@example.com", "correct-horse")
	require.NoError(t, err)

	// Первый refresh проходит ровно один раз
	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// Повторное предъявление ротированного токена — сигнал кражи
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReuse)

	// Сессия принудительно завершена: новый токен тоже недействителен
	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestService_RefreshUnknownToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	_, err := svc.Refresh(ctx, "never-issued-token")
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestService_RefreshExpiredSession(t *testing.T) {
	ctx := context.Background()
	svc, store := setupTestService(t)
	user := registerTestUser(t, svc)

	// Сохраняем сессию с истекшим refresh token напрямую
	expiredToken := "expired-refresh-token"
	session := &models.Session{
		UserID:    user.ID,
		TokenHash: Fingerprint(expiredToken),
		IssuedAt:  time.Now().Add(-48 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.SaveSession(ctx, session))

	_, err := svc.Refresh(ctx, expiredToken)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestService_ConcurrentRefresh(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	registerTestUser(t, svc)

	pair, err := svc.Login(ctx, "owner@example.com", "correct-horse")
	require.NoError(t, err)

	const attempts = 4
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(ctx, pair.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			failed++
		}
	}

	// Ровно один из конкурентных refresh с общим токеном побеждает
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, failed)
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	registerTestUser(t, svc)

	pair, err := svc.Login(ctx, "owner@example.com", "correct-horse")
	require.NoError(t, err)

	err = svc.Logout(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// Refresh после logout всегда отклоняется
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	// Повторный logout с тем же токеном
	err = svc.Logout(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestService_NewLoginSupersedesSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	registerTestUser(t, svc)

	first, err := svc.Login(ctx, "owner@example.com", "correct-horse")
	require.NoError(t, err)

	second, err := svc.Login(ctx, "owner@example.com", "correct-horse")
	require.NoError(t, err)

	// Одна активная сессия на пользователя: старый refresh token вытеснен
	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	_, err = svc.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestService_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	svc, store := setupTestService(t)
	user := registerTestUser(t, svc)

	session := &models.Session{
		UserID:    user.ID,
		TokenHash: Fingerprint("stale-token"),
		IssuedAt:  time.Now().Add(-48 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.SaveSession(ctx, session))

	deleted, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}
