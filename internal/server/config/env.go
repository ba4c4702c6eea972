package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays Config fields from environment variables.
//
// Supported variables:
//
//	LINKHUB_ADDR              HTTP bind address
//	LINKHUB_DATABASE_PATH     SQLite database file path
//	LINKHUB_JWT_SECRET        JWT HMAC secret
//	LINKHUB_ACCESS_TOKEN_TTL  access token lifetime (Go duration, e.g. "15m")
//	LINKHUB_REFRESH_TOKEN_TTL refresh token lifetime (e.g. "720h")
//	LINKHUB_LOGIN_RATE_LIMIT  max login attempts per window
//	LINKHUB_LOGIN_RATE_WINDOW rate-limit window (e.g. "1m")
//	LINKHUB_STORE_TIMEOUT     storage call timeout (e.g. "3s")
func parseEnv(cfg *Config) {
	if v := os.Getenv("LINKHUB_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("LINKHUB_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("LINKHUB_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("LINKHUB_ACCESS_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.AccessTokenTTL = d
		}
	}
	if v := os.Getenv("LINKHUB_REFRESH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RefreshTokenTTL = d
		}
	}
	if v := os.Getenv("LINKHUB_LOGIN_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimit = n
		}
	}
	if v := os.Getenv("LINKHUB_LOGIN_RATE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LoginRateWindow = d
		}
	}
	if v := os.Getenv("LINKHUB_STORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StoreTimeout = d
		}
	}
}
