package api

import "time"

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Email    string `json:"email"`    // email пользователя (login identifier)
	Password string `json:"password"` // пароль в открытом виде (передается по TLS)
}

// RegisterResponse представляет ответ на успешную регистрацию
type RegisterResponse struct {
	UserID  string `json:"user_id"` // UUID пользователя
	Message string `json:"message"` // сообщение об успешной регистрации
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Email    string `json:"email"`    // email пользователя
	Password string `json:"password"` // пароль в открытом виде (передается по TLS)
}

// RefreshRequest представляет запрос на ротацию пары токенов
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"` // текущий refresh token
}

// LogoutRequest представляет запрос на завершение сессии
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"` // refresh token завершаемой сессии
}

// TokenResponse представляет ответ с токенами доступа
type TokenResponse struct {
	AccessToken  string `json:"access_token"`  // JWT access token
	RefreshToken string `json:"refresh_token"` // refresh token
	ExpiresIn    int64  `json:"expires_in"`    // время жизни access token в секундах
}

// UserResponse представляет профиль аутентифицированного пользователя
type UserResponse struct {
	ID        string    `json:"id"`         // UUID пользователя
	Email     string    `json:"email"`      // email пользователя
	CreatedAt time.Time `json:"created_at"` // время регистрации
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
