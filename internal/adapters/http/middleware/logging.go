// Package middleware - Logging middleware для структурированного логирования.
package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingConfig - конфигурация для logging middleware.
type LoggingConfig struct {
	Logger         *slog.Logger
	SkipPaths      []string // Пути без логирования (health probes, metrics)
	LogRequestBody bool     // Логировать тело запроса: суммы и ключи идемпотентности попадут в логи
	MaxBodySize    int      // Максимальный размер тела для логирования
}

// DefaultLoggingConfig - конфигурация по умолчанию.
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Logger:         slog.Default(),
		SkipPaths:      []string{"/health", "/live", "/ready", "/metrics"},
		LogRequestBody: false,
		MaxBodySize:    1024,
	}
}

// Logging middleware пишет одну структурированную запись на запрос.
//
// В запись попадают метод, путь, статус, длительность, request ID,
// IP клиента и размер ответа. Уровень лога зависит от статуса:
// 5xx - Error, 4xx - Warn, остальное - Info.
func Logging(config *LoggingConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultLoggingConfig()
	}

	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()

		var requestBody string
		if config.LogRequestBody && c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			requestBody = truncate(string(bodyBytes), config.MaxBodySize)
		}

		c.Next()

		status := c.Writer.Status()

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("query", c.Request.URL.RawQuery),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", GetRequestID(c)),
			slog.String("client_ip", c.ClientIP()),
			slog.Int("response_size", c.Writer.Size()),
		}

		if requestBody != "" {
			attrs = append(attrs, slog.String("request_body", requestBody))
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		config.Logger.LogAttrs(c.Request.Context(), level, "HTTP Request", attrs...)
	}
}

// truncate обрезает строку до максимальной длины.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...[truncated]"
}
