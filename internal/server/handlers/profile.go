package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/avkuzmin/linkhub/internal/server/storage"
	"github.com/avkuzmin/linkhub/pkg/api"
)

// ProfileHandler отдает данные аутентифицированного пользователя.
// Идентификация выполняется целиком в auth middleware: хендлер доверяет
// user_id из контекста запроса.
type ProfileHandler struct {
	logger *slog.Logger
	users  storage.UserStorage
}

// NewProfileHandler создает новый handler профиля
func NewProfileHandler(logger *slog.Logger, users storage.UserStorage) *ProfileHandler {
	return &ProfileHandler{
		logger: logger,
		users:  users,
	}
}

// Me обрабатывает GET /api/v1/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		// Middleware не отработал: защищенный маршрут без identity
		h.logger.ErrorContext(ctx, "no user_id in request context")
		sendError(h.logger, w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			sendError(h.logger, w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}
