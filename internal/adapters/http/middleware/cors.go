// Package middleware - CORS middleware.
//
// API в первую очередь machine-to-machine, но админские дашборды
// и тестовые страницы ходят из браузера - без CORS заголовков
// браузер такие запросы режет.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig - конфигурация CORS.
type CORSConfig struct {
	// AllowOrigins - разрешённые origins; "*" разрешает все
	AllowOrigins []string
	// AllowMethods - разрешённые HTTP методы
	AllowMethods []string
	// AllowHeaders - разрешённые заголовки запроса
	AllowHeaders []string
	// ExposeHeaders - заголовки, доступные клиентскому JS
	ExposeHeaders []string
	// AllowCredentials - разрешить credentials (cookies, auth headers)
	AllowCredentials bool
	// MaxAge - время кеширования preflight ответа (секунды)
	MaxAge int
}

// DefaultCORSConfig - открытая конфигурация для development.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Request-ID",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		AllowCredentials: false,
		MaxAge:           43200, // 12 часов
	}
}

// ProductionCORSConfig ограничивает origins явным списком.
func ProductionCORSConfig(allowedOrigins []string) *CORSConfig {
	config := DefaultCORSConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowCredentials = true
	return config
}

// CORS middleware для обработки cross-origin запросов.
//
// Preflight (OPTIONS) запросы завершаются сразу со статусом 204;
// основные запросы получают CORS заголовки и идут дальше по цепочке.
// Запрос с неразрешённым origin проходит без CORS заголовков -
// блокировку выполняет сам браузер.
func CORS(config *CORSConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultCORSConfig()
	}

	allowMethods := strings.Join(config.AllowMethods, ", ")
	allowHeaders := strings.Join(config.AllowHeaders, ", ")
	exposeHeaders := strings.Join(config.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	allowAllOrigins := len(config.AllowOrigins) == 1 && config.AllowOrigins[0] == "*"
	allowedOrigins := make(map[string]struct{}, len(config.AllowOrigins))
	for _, origin := range config.AllowOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		var allowOrigin string
		switch {
		case allowAllOrigins:
			allowOrigin = "*"
		default:
			if _, ok := allowedOrigins[origin]; ok {
				allowOrigin = origin
			}
		}

		if allowOrigin == "" && origin != "" {
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Methods", allowMethods)
		c.Header("Access-Control-Allow-Headers", allowHeaders)
		c.Header("Access-Control-Expose-Headers", exposeHeaders)
		c.Header("Access-Control-Max-Age", maxAge)

		if config.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
