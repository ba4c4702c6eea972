// Package server initializes and runs the linkhub auth server.
// It wires storage, the authentication service, handlers and middleware,
// runs the expired-session janitor, and handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avkuzmin/linkhub/internal/server/auth"
	"github.com/avkuzmin/linkhub/internal/server/config"
	"github.com/avkuzmin/linkhub/internal/server/handlers"
	"github.com/avkuzmin/linkhub/internal/server/middleware"
	"github.com/avkuzmin/linkhub/internal/server/storage/sqlite"
)

// App собирает все компоненты сервера
type App struct {
	config       *config.Config
	logger       *slog.Logger
	storage      *sqlite.Storage
	authService  *auth.Service
	loginLimiter *middleware.RateLimiter
	tokenConfig  auth.TokenConfig
	version      string
}

// NewApp создает приложение: открывает хранилище (с миграциями),
// собирает сервис аутентификации и login rate limiter
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (*App, error) {
	store, err := sqlite.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	tokenConfig := auth.TokenConfig{
		Secret:          []byte(cfg.JWTSecret),
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	}

	authService := auth.NewService(logger, store, store, tokenConfig, cfg.StoreTimeout)
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow, logger)

	return &App{
		config:       cfg,
		logger:       logger,
		storage:      store,
		authService:  authService,
		loginLimiter: loginLimiter,
		tokenConfig:  tokenConfig,
		version:      version,
	}, nil
}

// Routes собирает маршруты и цепочку middleware.
// Rate limiter стоит только на login; refresh и logout не лимитируются.
// Auth middleware стоит только на защищенных маршрутах.
func (app *App) Routes() http.Handler {
	authHandler := handlers.NewAuthHandler(app.logger, app.authService)
	profileHandler := handlers.NewProfileHandler(app.logger, app.storage)
	healthHandler := handlers.NewHealthHandler(app.logger, app.version)

	rateLimit := middleware.RateLimitMiddleware(app.loginLimiter, app.logger)
	requireAuth := middleware.AuthMiddleware(app.logger, app.tokenConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.Handle("POST /api/v1/auth/login", rateLimit(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/v1/me", requireAuth(http.HandlerFunc(profileHandler.Me)))

	// Внешняя цепочка: recovery -> logging -> mux
	var handler http.Handler = mux
	handler = middleware.LoggingWithSkip(app.logger, []string{"/api/v1/health"})(handler)
	handler = middleware.RecoveryMiddleware(app.logger)(handler)

	return handler
}

// Run запускает HTTP сервер и janitor истекших сессий.
// Блокируется до отмены ctx, затем выполняет graceful shutdown.
func (app *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              app.config.Addr,
		Handler:           app.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("server starting", "addr", app.config.Addr, "version", app.version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go app.runSessionJanitor(ctx)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	app.loginLimiter.Stop()

	if err := app.storage.Close(); err != nil {
		return fmt.Errorf("storage close error: %w", err)
	}

	return nil
}

// runSessionJanitor периодически удаляет истекшие сессии
func (app *App) runSessionJanitor(ctx context.Context) {
	ticker := time.NewTicker(app.config.SessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deleted, err := app.authService.PurgeExpired(ctx)
			if err != nil {
				app.logger.Error("session purge failed", "error", err)
				continue
			}
			if deleted > 0 {
				app.logger.Info("expired sessions purged", "count", deleted)
			}
		case <-ctx.Done():
			return
		}
	}
}
