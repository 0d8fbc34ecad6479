// Package middleware - Authentication middleware.
//
// API обслуживает machine-to-machine клиентов: токен - это HS256 JWT,
// выданный оператором системы, subject - идентификатор клиента.
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// AuthClientIDKey - ключ для хранения client ID в контексте
	AuthClientIDKey = "auth_client_id"
	// AuthRoleKey - ключ для хранения роли клиента
	AuthRoleKey = "auth_role"
)

// AuthConfig - конфигурация для authentication middleware.
type AuthConfig struct {
	// Secret - ключ подписи HS256
	Secret string
	// SkipPaths - пути, которые не требуют авторизации
	SkipPaths []string
}

// AuthClaims - claims токена авторизации.
type AuthClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Auth middleware для проверки авторизации.
//
// Схема работы:
// 1. Извлекает токен из заголовка Authorization ("Bearer <token>")
// 2. Проверяет подпись и срок действия
// 3. Добавляет client ID и роль в контекст
// 4. Продолжает обработку или возвращает 401
func Auth(config *AuthConfig) gin.HandlerFunc {
	skipMap := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithUnauthorized(c, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithUnauthorized(c, "Invalid authorization header format")
			return
		}

		token := parts[1]
		if token == "" {
			abortWithUnauthorized(c, "Token is required")
			return
		}

		claims, err := ParseToken(token, config.Secret)
		if err != nil {
			abortWithUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(AuthClientIDKey, claims.Subject)
		c.Set(AuthRoleKey, claims.Role)

		c.Next()
	}
}

// ParseToken валидирует HS256 JWT и возвращает claims.
// Подпись другим алгоритмом отбивается до проверки claims.
func ParseToken(tokenString, secret string) (*AuthClaims, error) {
	claims := &AuthClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	return claims, nil
}

// IssueToken выдаёт подписанный токен для клиента. Используется
// инструментами оператора и тестами; сам сервис токены не раздаёт.
func IssueToken(clientID, role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AuthClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// abortWithUnauthorized отправляет 401 ответ.
func abortWithUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
		"request_id": GetRequestID(c),
		"timestamp":  time.Now().UTC(),
	})
}

// RequireRole middleware проверяет роль клиента.
//
// Используется после Auth middleware для проверки разрешений.
func RequireRole(roles ...string) gin.HandlerFunc {
	roleMap := make(map[string]bool)
	for _, role := range roles {
		roleMap[role] = true
	}

	return func(c *gin.Context) {
		role := GetAuthRole(c)
		if role == "" {
			abortWithForbidden(c, "Client role not found")
			return
		}

		if !roleMap[role] {
			abortWithForbidden(c, "Insufficient permissions")
			return
		}

		c.Next()
	}
}

// abortWithForbidden отправляет 403 ответ.
func abortWithForbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "FORBIDDEN",
			"message": message,
		},
		"request_id": GetRequestID(c),
		"timestamp":  time.Now().UTC(),
	})
}

// ============================================
// Helper functions для извлечения auth данных
// ============================================

// GetAuthClientID возвращает ID авторизованного клиента.
func GetAuthClientID(c *gin.Context) string {
	if id, exists := c.Get(AuthClientIDKey); exists {
		if strID, ok := id.(string); ok {
			return strID
		}
	}
	return ""
}

// GetAuthRole возвращает роль авторизованного клиента.
func GetAuthRole(c *gin.Context) string {
	if role, exists := c.Get(AuthRoleKey); exists {
		if strRole, ok := role.(string); ok {
			return strRole
		}
	}
	return ""
}
