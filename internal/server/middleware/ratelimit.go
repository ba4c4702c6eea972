package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// RateLimiter ограничивает число попыток в фиксированном окне на ключ
// (обычно IP адрес клиента). По истечении окна счетчик сбрасывается в
// ноль. Счетчики живут в памяти процесса: при нескольких инстансах
// сервиса лимит действует best-effort per-instance, общий лимит
// требует централизованного стора.
type RateLimiter struct {
	counters map[string]*counter
	logger   *slog.Logger
	cleanupC chan struct{}
	limit    int
	window   time.Duration
	mu       sync.RWMutex
}

// counter хранит счетчик попыток для конкретного ключа
type counter struct {
	windowStart time.Time
	attempts    int
	mu          sync.Mutex
}

// NewRateLimiter создает новый rate limiter
// limit - максимальное количество попыток в окне
// window - длительность окна (например, 1 минута)
func NewRateLimiter(limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		counters: make(map[string]*counter),
		limit:    limit,
		window:   window,
		logger:   logger,
		cleanupC: make(chan struct{}),
	}

	// Запускаем периодическую очистку неактивных счетчиков
	go rl.cleanup()

	return rl
}

// cleanup периодически удаляет неактивные счетчики для экономии памяти
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupOldCounters()
		case <-rl.cleanupC:
			return
		}
	}
}

// cleanupOldCounters удаляет счетчики, окно которых давно истекло
func (rl *RateLimiter) cleanupOldCounters() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, c := range rl.counters {
		c.mu.Lock()
		if now.Sub(c.windowStart) > rl.window*2 {
			delete(rl.counters, key)
		}
		c.mu.Unlock()
	}
}

// Stop останавливает cleanup goroutine
func (rl *RateLimiter) Stop() {
	close(rl.cleanupC)
}

// Allow проверяет, разрешена ли попытка для данного ключа
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.RLock()
	c, exists := rl.counters[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		// Повторная проверка: счетчик мог появиться между unlock/lock
		c, exists = rl.counters[key]
		if !exists {
			c = &counter{windowStart: time.Now()}
			rl.counters[key] = c
		}
		rl.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	// Окно истекло — счетчик сбрасывается в ноль
	if now.Sub(c.windowStart) >= rl.window {
		c.attempts = 0
		c.windowStart = now
	}

	if c.attempts >= rl.limit {
		return false
	}

	c.attempts++
	return true
}

// RateLimitMiddleware создает middleware для ограничения частоты попыток
// на маршруте. Вешается только на login: отклоненный запрос не доходит
// до проверки учетных данных (без лишней работы хеширования).
func RateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Используем IP адрес как ключ
			key := getClientIP(r)

			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded",
					"ip", key,
					"method", r.Method,
					"path", r.URL.Path,
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded, please try again later"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP извлекает IP адрес клиента из запроса
// Проверяет заголовки X-Forwarded-For и X-Real-IP для прокси
func getClientIP(r *http.Request) string {
	// Проверяем X-Forwarded-For (для прокси/load balancers)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Берем первый IP из списка (реальный клиент)
		for idx := 0; idx < len(xff); idx++ {
			if xff[idx] == ',' {
				return xff[:idx]
			}
		}
		return xff
	}

	// Проверяем X-Real-IP
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Используем RemoteAddr
	return r.RemoteAddr
}
