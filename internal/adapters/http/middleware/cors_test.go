package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newCORSRouter(config *CORSConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS(config))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestDefaultCORSConfig(t *testing.T) {
	config := DefaultCORSConfig()

	assert.Equal(t, []string{"*"}, config.AllowOrigins)
	assert.Contains(t, config.AllowMethods, http.MethodPost)
	assert.Contains(t, config.AllowHeaders, "Authorization")
	assert.Contains(t, config.ExposeHeaders, "X-Request-ID")
	assert.False(t, config.AllowCredentials)
	assert.Equal(t, 43200, config.MaxAge)
}

func TestProductionCORSConfig(t *testing.T) {
	origins := []string{"https://dashboard.example.com"}
	config := ProductionCORSConfig(origins)

	assert.Equal(t, origins, config.AllowOrigins)
	assert.True(t, config.AllowCredentials)
}

func TestCORS(t *testing.T) {
	t.Run("WildcardAllowsAnyOrigin", func(t *testing.T) {
		router := newCORSRouter(DefaultCORSConfig())

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://anything.example.com")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("AllowedOriginEchoed", func(t *testing.T) {
		config := ProductionCORSConfig([]string{"https://dashboard.example.com"})
		router := newCORSRouter(config)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://dashboard.example.com")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://dashboard.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("DisallowedOriginGetsNoHeaders", func(t *testing.T) {
		config := ProductionCORSConfig([]string{"https://dashboard.example.com"})
		router := newCORSRouter(config)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		// Запрос проходит, но без CORS заголовков - блокирует браузер
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("PreflightReturns204", func(t *testing.T) {
		router := newCORSRouter(DefaultCORSConfig())

		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", "https://anything.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("NoOriginHeaderStillWorks", func(t *testing.T) {
		router := newCORSRouter(DefaultCORSConfig())

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("NilConfigUsesDefault", func(t *testing.T) {
		router := newCORSRouter(nil)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://anything.example.com")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
