package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/avkuzmin/linkhub/internal/server/auth"
	"github.com/avkuzmin/linkhub/internal/server/handlers"
)

// AuthMiddleware создает middleware для проверки JWT access token.
// Проверяется только подпись и срок действия (stateless fast path,
// без обращения к хранилищу сессий); истекший access token клиент
// обновляет через refresh, а не через серверную проверку сессии.
// При любой ошибке запрос отклоняется до бизнес-логики, identity в
// контекст не попадает.
func AuthMiddleware(logger *slog.Logger, tokenConfig auth.TokenConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("Invalid Authorization header format")
				http.Error(w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			tokenString := parts[1]

			claims, err := auth.ValidateAccessToken(tokenConfig, tokenString)
			if err != nil {
				logger.Warn("Invalid access token", "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			// Добавляем identity из токена в контекст
			ctx := context.WithValue(r.Context(), handlers.UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, handlers.EmailKey, claims.Email)

			logger.Debug("User authenticated", "user_id", claims.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
