// Package middleware - Rate Limiting middleware.
//
// Ограничение числа запросов по ключу (IP или клиент) через
// fixed window counter с in-memory хранением. Для распределённого
// лимитирования через несколько инстансов нужен Redis, но один
// инстанс API этим покрыт.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig - конфигурация для rate limiting.
type RateLimitConfig struct {
	// Limit - запросов за окно
	Limit int
	// Window - длительность окна
	Window time.Duration
	// KeyFunc определяет ключ лимитирования; по умолчанию - IP адрес
	KeyFunc func(*gin.Context) string
	// OnLimitReached - callback при достижении лимита
	OnLimitReached func(*gin.Context)
}

// DefaultRateLimitConfig - 100 запросов в минуту по IP.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Limit:  100,
		Window: time.Minute,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// rateLimiter хранит окна по ключам.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	config  *RateLimitConfig
}

// window - счётчик запросов одного ключа в текущем окне.
type window struct {
	remaining int
	startedAt time.Time
}

func newRateLimiter(config *RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{
		windows: make(map[string]*window),
		config:  config,
	}

	go rl.evictStale()

	return rl
}

// take пытается списать один запрос. Возвращает (разрешён ли, остаток,
// время до сброса окна).
func (rl *rateLimiter) take(key string) (bool, int, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.startedAt) >= rl.config.Window {
		rl.windows[key] = &window{
			remaining: rl.config.Limit - 1,
			startedAt: now,
		}
		return true, rl.config.Limit - 1, rl.config.Window
	}

	resetIn := rl.config.Window - now.Sub(w.startedAt)
	if w.remaining <= 0 {
		return false, 0, resetIn
	}

	w.remaining--
	return true, w.remaining, resetIn
}

// evictStale периодически удаляет давно не использованные окна,
// иначе map растёт с каждым новым IP.
func (rl *rateLimiter) evictStale() {
	ticker := time.NewTicker(rl.config.Window * 2)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, w := range rl.windows {
			if now.Sub(w.startedAt) > rl.config.Window*2 {
				delete(rl.windows, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit middleware для ограничения количества запросов.
//
// При достижении лимита возвращается 429 Too Many Requests.
//
// Headers:
// - X-RateLimit-Limit: Максимум запросов за окно
// - X-RateLimit-Remaining: Оставшееся количество
// - X-RateLimit-Reset: Время сброса окна (Unix timestamp)
// - Retry-After: Секунд до сброса (при 429)
func RateLimit(config *RateLimitConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	limiter := newRateLimiter(config)

	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		allowed, remaining, resetIn := limiter.take(key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(resetIn).Unix(), 10))

		if !allowed {
			retrySeconds := int(resetIn.Seconds())
			if retrySeconds < 1 {
				retrySeconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(retrySeconds))

			if config.OnLimitReached != nil {
				config.OnLimitReached(c)
			}

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":        "TOO_MANY_REQUESTS",
					"message":     "Rate limit exceeded, please try again later",
					"retry_after": retrySeconds,
				},
				"request_id": GetRequestID(c),
				"timestamp":  time.Now().UTC(),
			})
			return
		}

		c.Next()
	}
}

// ============================================
// Endpoint-specific rate limiters
// ============================================

// TransactionRateLimit - строгий лимит для денежных операций
// (переводы, начисления процентов).
//
// Ключ - авторизованный клиент, если auth включена, иначе IP.
func TransactionRateLimit() gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{
		Limit:  30,
		Window: time.Minute,
		KeyFunc: func(c *gin.Context) string {
			if clientID := GetAuthClientID(c); clientID != "" {
				return "client:" + clientID
			}
			return "ip:" + c.ClientIP()
		},
	})
}
