package models

import "time"

// Session представляет активную refresh-сессию пользователя.
// На одного пользователя существует не более одной записи (single-device
// семантика): login создает запись, каждый успешный refresh атомарно
// заменяет fingerprint, logout удаляет запись.
//
// В БД хранится только SHA256 fingerprint токена, не сам токен.
// PrevTokenHash содержит fingerprint, вытесненный последней ротацией:
// его повторное предъявление означает кражу токена (token reuse).
type Session struct {
	UserID        string    `json:"user_id"`         // ID пользователя (одна сессия на пользователя)
	TokenHash     string    `json:"token_hash"`      // SHA256 fingerprint текущего refresh token
	PrevTokenHash string    `json:"prev_token_hash"` // fingerprint, вытесненный последней ротацией
	IssuedAt      time.Time `json:"issued_at"`       // время выдачи текущего refresh token
	ExpiresAt     time.Time `json:"expires_at"`      // время истечения refresh token
}
