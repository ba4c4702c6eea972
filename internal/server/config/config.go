// Package config handles configuration for the server component,
// including defaults, environment overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the linkhub auth server.
//
// Fields:
//   - Addr: bind address for the HTTP endpoint.
//   - DatabasePath: path to the SQLite database file.
//   - JWTSecret: HMAC secret for signing access tokens (HS256). Do not
//     use the development default in prod.
//   - AccessTokenTTL / RefreshTokenTTL: token lifetimes.
//   - LoginRateLimit / LoginRateWindow: max login attempts per client
//     key within the window (per process instance).
//   - StoreTimeout: per-call budget for storage operations.
//   - SessionPurgeInterval: how often expired sessions are purged.
type Config struct {
	Addr                 string
	DatabasePath         string
	JWTSecret            string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	LoginRateLimit       int
	LoginRateWindow      time.Duration
	StoreTimeout         time.Duration
	SessionPurgeInterval time.Duration
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.DatabasePath = "linkhub.db"
	c.JWTSecret = "dev-secret"
	c.AccessTokenTTL = 15 * time.Minute
	c.RefreshTokenTTL = 30 * 24 * time.Hour
	c.LoginRateLimit = 5
	c.LoginRateWindow = 1 * time.Minute
	c.StoreTimeout = 3 * time.Second
	c.SessionPurgeInterval = 1 * time.Hour
}

// LoadConfig builds a Config by applying defaults, then overlaying
// values from environment variables and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
