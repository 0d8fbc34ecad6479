// Package middleware - Recovery middleware для обработки паник.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// RecoveryConfig - конфигурация для recovery middleware.
type RecoveryConfig struct {
	Logger           *slog.Logger
	EnableStackTrace bool // Включать stack trace в логи
}

// DefaultRecoveryConfig - конфигурация по умолчанию.
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		Logger:           slog.Default(),
		EnableStackTrace: true,
	}
}

// Recovery middleware перехватывает панику в handler и превращает
// её в 500 ответ вместо падения всего процесса.
//
// Паника из-за оборванного соединения (broken pipe) - особый случай:
// писать ответ некому, поэтому запрос просто прерывается.
func Recovery(config *RecoveryConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultRecoveryConfig()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				if isBrokenPipe(err) {
					config.Logger.LogAttrs(c.Request.Context(), slog.LevelWarn, "Connection broken",
						slog.String("error", fmt.Sprintf("%v", err)),
						slog.String("path", c.Request.URL.Path),
						slog.String("request_id", GetRequestID(c)),
					)
					c.Abort()
					return
				}

				attrs := []slog.Attr{
					slog.String("error", fmt.Sprintf("%v", err)),
					slog.String("path", c.Request.URL.Path),
					slog.String("method", c.Request.Method),
					slog.String("request_id", GetRequestID(c)),
					slog.String("client_ip", c.ClientIP()),
				}

				if config.EnableStackTrace {
					attrs = append(attrs, slog.String("stack", string(debug.Stack())))
				}

				config.Logger.LogAttrs(c.Request.Context(), slog.LevelError, "Panic recovered", attrs...)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "INTERNAL_ERROR",
						"message": "An unexpected error occurred",
					},
					"request_id": GetRequestID(c),
					"timestamp":  time.Now().UTC(),
				})
			}
		}()

		c.Next()
	}
}

// isBrokenPipe распознаёт панику net/http при записи в закрытое соединение.
func isBrokenPipe(err any) bool {
	e, ok := err.(error)
	if !ok {
		return false
	}

	var opErr *net.OpError
	if !errors.As(e, &opErr) {
		return false
	}

	var sysErr *os.SyscallError
	if errors.As(opErr.Err, &sysErr) {
		if errors.Is(sysErr.Err, syscall.EPIPE) || errors.Is(sysErr.Err, syscall.ECONNRESET) {
			return true
		}
		msg := strings.ToLower(sysErr.Error())
		return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
	}

	return false
}
