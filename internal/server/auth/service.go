// Package auth реализует ядро сессионной аутентификации: проверку
// учетных данных, выпуск и ротацию пары access/refresh токенов и отзыв
// сессий. Access token — stateless JWT; refresh token авторитетен
// только через хранилище сессий.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/avkuzmin/linkhub/internal/models"
	"github.com/avkuzmin/linkhub/internal/server/storage"
)

// dummyPasswordHash — валидный bcrypt хеш (cost 10), против которого
// выполняется сравнение при неизвестном email. Сравнение с ним стоит
// столько же, сколько с настоящим хешем, поэтому по времени ответа
// нельзя отличить "нет такого пользователя" от "неверный пароль".
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// TokenPair содержит выпущенную пару токенов
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // время жизни access token в секундах
}

// Service реализует операции аутентификации поверх хранилищ
// пользователей и сессий
type Service struct {
	logger       *slog.Logger
	users        storage.UserStorage
	sessions     storage.SessionStorage
	tokens       TokenConfig
	storeTimeout time.Duration
}

// NewService создает новый сервис аутентификации.
// storeTimeout ограничивает каждое обращение к хранилищу; по истечении
// таймаута операция завершается с ErrUnavailable.
func NewService(logger *slog.Logger, users storage.UserStorage, sessions storage.SessionStorage, tokens TokenConfig, storeTimeout time.Duration) *Service {
	return &Service{
		logger:       logger,
		users:        users,
		sessions:     sessions,
		tokens:       tokens,
		storeTimeout: storeTimeout,
	}
}

// Register создает нового пользователя с bcrypt-хешем пароля.
// Возвращает storage.ErrUserAlreadyExists, если email уже занят.
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(passwordHash),
		CreatedAt:    time.Now(),
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.users.CreateUser(sctx, user); err != nil {
		return nil, s.mapStoreErr(err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID))

	return user, nil
}

// Login проверяет учетные данные и выпускает пару токенов.
// Для неизвестного email и для неверного пароля возвращается один и тот
// же ErrInvalidCredentials с сопоставимой задержкой (dummy-сравнение).
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.users.GetUserByEmail(sctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// Холостое сравнение выравнивает время ответа
			_ = bcrypt.CompareHashAndPassword([]byte(dummyPasswordHash), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, s.mapStoreErr(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID))

	return pair, nil
}

// Refresh валидирует refresh token по хранилищу сессий и атомарно
// ротирует его. Старый токен становится недействительным в момент
// успешной ротации, даже если ответ не дойдет до клиента.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	tokenHash := Fingerprint(refreshToken)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	session, err := s.sessions.GetSessionByTokenHash(sctx, tokenHash)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, s.handleUnknownToken(ctx, tokenHash)
		}
		return nil, s.mapStoreErr(err)
	}

	if time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetUserByID(sctx, session.UserID)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}

	accessToken, expiresIn, err := GenerateAccessToken(s.tokens, user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	newRefreshToken, expiresAt, err := GenerateRefreshToken(s.tokens)
	if err != nil {
		return nil, err
	}

	// Ротация выполняется в контексте, отвязанном от отмены запроса:
	// начатая запись обязана завершиться целиком, даже если клиент
	// оборвал соединение.
	wctx, wcancel := s.writeCtx(ctx)
	defer wcancel()

	err = s.sessions.RotateSession(wctx, session.UserID, tokenHash, Fingerprint(newRefreshToken), time.Now(), expiresAt)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			// Конкурентная ротация с тем же токеном уже победила:
			// второе предъявление — сигнал утечки токена
			return nil, s.revokeOnReuse(ctx, session.UserID)
		}
		return nil, s.mapStoreErr(err)
	}

	s.logger.InfoContext(ctx, "session rotated",
		slog.String("user_id", session.UserID))

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// Logout удаляет сессию, соответствующую refresh token'у.
// Возвращает ErrSessionRevoked, если токен не соответствует активной сессии.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	tokenHash := Fingerprint(refreshToken)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	session, err := s.sessions.GetSessionByTokenHash(sctx, tokenHash)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return ErrSessionRevoked
		}
		return s.mapStoreErr(err)
	}

	wctx, wcancel := s.writeCtx(ctx)
	defer wcancel()

	if err := s.sessions.DeleteSession(wctx, session.UserID); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			// Параллельный logout уже удалил запись
			return nil
		}
		return s.mapStoreErr(err)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", session.UserID))

	return nil
}

// PurgeExpired удаляет истекшие сессии (вызывается фоновой задачей)
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	deleted, err := s.sessions.DeleteExpiredSessions(sctx)
	if err != nil {
		return 0, s.mapStoreErr(err)
	}

	return deleted, nil
}

// issue выпускает пару токенов и записывает новую сессию пользователя
func (s *Service) issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	accessToken, expiresIn, err := GenerateAccessToken(s.tokens, user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, expiresAt, err := GenerateRefreshToken(s.tokens)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		UserID:    user.ID,
		TokenHash: Fingerprint(refreshToken),
		IssuedAt:  time.Now(),
		ExpiresAt: expiresAt,
	}

	wctx, wcancel := s.writeCtx(ctx)
	defer wcancel()

	if err := s.sessions.SaveSession(wctx, session); err != nil {
		return nil, s.mapStoreErr(err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// handleUnknownToken различает "токен уже ротирован" (reuse, сигнал
// кражи) и "сессии нет вообще" (logout или истекшая запись удалена)
func (s *Service) handleUnknownToken(ctx context.Context, tokenHash string) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	session, err := s.sessions.GetSessionByPrevTokenHash(sctx, tokenHash)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return ErrSessionRevoked
		}
		return s.mapStoreErr(err)
	}

	return s.revokeOnReuse(ctx, session.UserID)
}

// revokeOnReuse принудительно завершает сессию пользователя при
// обнаружении повторного предъявления ротированного токена
func (s *Service) revokeOnReuse(ctx context.Context, userID string) error {
	s.logger.WarnContext(ctx, "refresh token reuse detected, revoking session",
		slog.String("user_id", userID))

	wctx, cancel := s.writeCtx(ctx)
	defer cancel()

	if err := s.sessions.DeleteSession(wctx, userID); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		s.logger.ErrorContext(ctx, "failed to revoke session after reuse",
			slog.String("user_id", userID), slog.Any("error", err))
	}

	return ErrTokenReuse
}

// storeCtx ограничивает обращение к хранилищу таймаутом
func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// writeCtx дополнительно отвязывает запись от отмены входящего запроса:
// мутация хранилища не откатывается из-за оборванного соединения
func (s *Service) writeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
}

// mapStoreErr переводит таймаут хранилища в retryable ErrUnavailable
func (s *Service) mapStoreErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrUnavailable
	}
	return err
}
