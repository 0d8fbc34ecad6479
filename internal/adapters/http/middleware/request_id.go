// Package middleware содержит HTTP middleware для обработки запросов.
//
// Middleware в Gin - это функции, которые выполняются до/после handlers.
// Они используются для cross-cutting concerns: логирование, auth, tracing.
//
// Pattern: Chain of Responsibility
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader - имя заголовка для Request ID
	RequestIDHeader = "X-Request-ID"
	// RequestIDContextKey - ключ для хранения Request ID в контексте
	RequestIDContextKey = "request_id"

	// maxRequestIDLength ограничивает клиентский Request ID:
	// слишком длинные значения заменяются сгенерированным UUID.
	maxRequestIDLength = 128
)

// RequestID middleware присваивает каждому запросу уникальный ID.
//
// ID связывает все логи одного запроса между собой и возвращается
// клиенту в заголовке ответа. Клиентский X-Request-ID принимается
// как есть, если он разумной длины; иначе генерируется UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDContextKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID извлекает Request ID из контекста Gin.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDContextKey); exists {
		if strID, ok := id.(string); ok {
			return strID
		}
	}
	return ""
}
