package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/avkuzmin/linkhub/internal/server/auth"
	"github.com/avkuzmin/linkhub/internal/server/storage"
	"github.com/avkuzmin/linkhub/internal/validation"
	"github.com/avkuzmin/linkhub/pkg/api"
)

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger  *slog.Logger
	service *auth.Service
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, service *auth.Service) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		service: service,
	}
}

// Register обрабатывает POST /api/v1/auth/register
// Регистрация нового пользователя
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode register request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateEmail(req.Email); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.service.Register(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.sendError(w, "email already taken", http.StatusConflict)
			return
		}
		if errors.Is(err, auth.ErrUnavailable) {
			h.sendError(w, "service temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		h.logger.ErrorContext(ctx, "failed to register user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.RegisterResponse{
		UserID:  user.ID,
		Message: "User registered successfully",
	}

	h.sendJSON(w, resp, http.StatusCreated)
}

// Login обрабатывает POST /api/v1/auth/login
// Аутентификация пользователя и выпуск пары токенов.
// Rate limiter отрабатывает до этого хендлера (middleware на маршруте).
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode login request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateEmail(req.Email); err != nil {
		// Неверный формат не раскрывает существование пользователя:
		// ответ тот же, что и для неверных учетных данных
		h.sendError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	pair, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.WarnContext(ctx, "login failed")
			h.sendError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if errors.Is(err, auth.ErrUnavailable) {
			h.sendError(w, "service temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		h.logger.ErrorContext(ctx, "login error", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, tokenResponse(pair), http.StatusOK)
}

// Refresh обрабатывает POST /api/v1/auth/refresh
// Ротация пары токенов по refresh token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode refresh request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.RefreshToken == "" {
		h.sendError(w, "refresh_token is required", http.StatusUnauthorized)
		return
	}

	pair, err := h.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrSessionExpired):
			h.sendError(w, "session expired, please log in again", http.StatusUnauthorized)
		case errors.Is(err, auth.ErrTokenReuse), errors.Is(err, auth.ErrSessionRevoked):
			h.sendError(w, "session revoked", http.StatusUnauthorized)
		case errors.Is(err, auth.ErrUnavailable):
			h.sendError(w, "service temporarily unavailable", http.StatusServiceUnavailable)
		default:
			h.logger.ErrorContext(ctx, "refresh error", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.sendJSON(w, tokenResponse(pair), http.StatusOK)
}

// Logout обрабатывает POST /api/v1/auth/logout
// Завершение сессии: удаление записи refresh token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode logout request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.RefreshToken == "" {
		h.sendError(w, "refresh_token is required", http.StatusUnauthorized)
		return
	}

	if err := h.service.Logout(ctx, req.RefreshToken); err != nil {
		switch {
		case errors.Is(err, auth.ErrSessionRevoked):
			h.sendError(w, "unauthenticated", http.StatusUnauthorized)
		case errors.Is(err, auth.ErrUnavailable):
			h.sendError(w, "service temporarily unavailable", http.StatusServiceUnavailable)
		default:
			h.logger.ErrorContext(ctx, "logout error", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// tokenResponse конвертирует пару токенов в wire-формат
func tokenResponse(pair *auth.TokenPair) api.TokenResponse {
	return api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}
}

// sendJSON отправляет JSON ответ
func (h *AuthHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	sendJSON(h.logger, w, data, statusCode)
}

// sendError отправляет JSON ответ с ошибкой
func (h *AuthHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	sendError(h.logger, w, message, statusCode)
}

// sendJSON отправляет JSON ответ
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func sendError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	sendJSON(logger, w, resp, statusCode)
}
