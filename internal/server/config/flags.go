package config

import (
	"flag"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     SQLite database file path
//	-s string     JWT HMAC secret key
//	-t duration   access token lifetime (e.g., "15m")
//	-r duration   refresh token lifetime (e.g., "720h")
//	-l int        max login attempts per rate-limit window
//	-w duration   rate-limit window (e.g., "1m")
//
// Flags take precedence over environment variables.
func parseFlags(cfg *Config) {
	flag.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to run server")
	flag.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "SQLite database path")
	flag.StringVar(&cfg.JWTSecret, "s", cfg.JWTSecret, "JWT secret key")
	flag.DurationVar(&cfg.AccessTokenTTL, "t", cfg.AccessTokenTTL, "access token lifetime")
	flag.DurationVar(&cfg.RefreshTokenTTL, "r", cfg.RefreshTokenTTL, "refresh token lifetime")
	flag.IntVar(&cfg.LoginRateLimit, "l", cfg.LoginRateLimit, "max login attempts per window")
	flag.DurationVar(&cfg.LoginRateWindow, "w", cfg.LoginRateWindow, "login rate-limit window")

	flag.Parse()
}
