// Package http - Router configuration for REST API.
//
// Router собирает все handlers и middleware в единую точку входа.
//
// Pattern: Composition Root
// - Все зависимости собираются здесь
// - Handlers получают только нужные им use cases
// - Middleware применяется к соответствующим группам routes
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Haleralex/ledgerhub/internal/adapters/http/common"
	"github.com/Haleralex/ledgerhub/internal/adapters/http/handlers"
	"github.com/Haleralex/ledgerhub/internal/adapters/http/middleware"
)

// ============================================
// Router Configuration
// ============================================

// RouterConfig - конфигурация роутера.
type RouterConfig struct {
	// Logger для middleware
	Logger *slog.Logger
	// Database pool для health checks
	Pool *pgxpool.Pool
	// Redis client для health checks (может быть nil)
	Redis *redis.Client
	// NATS connection для health checks (может быть nil)
	NATS *nats.Conn
	// Version приложения
	Version string
	// BuildTime время сборки
	BuildTime string
	// Environment (development, staging, production)
	Environment string
	// ServiceName для otelgin spans
	ServiceName string
	// AllowedOrigins для CORS (production)
	AllowedOrigins []string
	// AuthSecret - ключ подписи JWT; пустая строка отключает auth
	// (локальная разработка и тесты).
	AuthSecret string
	// TracingEnabled включает otelgin middleware
	TracingEnabled bool
}

// DefaultRouterConfig - конфигурация по умолчанию для development.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Logger:         slog.Default(),
		Version:        "dev",
		BuildTime:      "unknown",
		Environment:    "development",
		ServiceName:    "ledgerhub",
		AllowedOrigins: []string{"*"},
	}
}

// ============================================
// Use Case Providers
// ============================================

// WalletUseCases - provider для wallet use cases.
type WalletUseCases struct {
	CreateWallet     handlers.CreateWalletUseCase
	GetWallet        handlers.GetWalletUseCase
	ListTransactions handlers.ListTransactionsUseCase
	ListLedger       handlers.ListLedgerUseCase
}

// TransferUseCases - provider для transfer use cases.
type TransferUseCases struct {
	ExecuteTransfer handlers.ExecuteTransferUseCase
}

// InterestUseCases - provider для interest use cases.
type InterestUseCases struct {
	CreateAccount  handlers.CreateAccountUseCase
	GetAccount     handlers.GetAccountUseCase
	CalculateDaily handlers.CalculateDailyInterestUseCase
	CalculateRange handlers.CalculateInterestRangeUseCase
	ListHistory    handlers.ListInterestHistoryUseCase
}

// ============================================
// Router Builder
// ============================================

// RouterBuilder - builder для создания роутера.
//
// Pattern: Builder
// - Позволяет пошагово настроить роутер
// - Проще тестировать
// - Можно переиспользовать части конфигурации
type RouterBuilder struct {
	config    *RouterConfig
	wallets   *WalletUseCases
	transfers *TransferUseCases
	interest  *InterestUseCases
}

// NewRouterBuilder создаёт новый builder.
func NewRouterBuilder(config *RouterConfig) *RouterBuilder {
	if config == nil {
		config = DefaultRouterConfig()
	}
	return &RouterBuilder{
		config: config,
	}
}

// WithWalletUseCases добавляет wallet use cases.
func (b *RouterBuilder) WithWalletUseCases(useCases *WalletUseCases) *RouterBuilder {
	b.wallets = useCases
	return b
}

// WithTransferUseCases добавляет transfer use cases.
func (b *RouterBuilder) WithTransferUseCases(useCases *TransferUseCases) *RouterBuilder {
	b.transfers = useCases
	return b
}

// WithInterestUseCases добавляет interest use cases.
func (b *RouterBuilder) WithInterestUseCases(useCases *InterestUseCases) *RouterBuilder {
	b.interest = useCases
	return b
}

// Build создаёт сконфигурированный Gin Engine.
func (b *RouterBuilder) Build() *gin.Engine {
	// Настраиваем режим Gin
	if b.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Создаём router без default middleware
	router := gin.New()

	// Настраиваем кастомные валидаторы
	handlers.SetupValidator()

	// ============================================
	// Global Middleware
	// ============================================

	// 1. Recovery - должен быть первым
	router.Use(middleware.Recovery(&middleware.RecoveryConfig{
		Logger:           b.config.Logger,
		EnableStackTrace: b.config.Environment != "production",
	}))

	// 2. Request ID
	router.Use(middleware.RequestID())

	// 3. CORS
	if b.config.Environment == "production" {
		router.Use(middleware.CORS(middleware.ProductionCORSConfig(b.config.AllowedOrigins)))
	} else {
		router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	}

	// 4. Logging
	router.Use(middleware.Logging(&middleware.LoggingConfig{
		Logger:    b.config.Logger,
		SkipPaths: []string{"/health", "/live", "/ready", "/metrics"},
	}))

	// 5. Rate Limiting (global)
	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	// 6. Metrics (Prometheus)
	router.Use(middleware.Metrics())

	// 7. Tracing
	if b.config.TracingEnabled {
		router.Use(otelgin.Middleware(b.config.ServiceName))
	}

	// ============================================
	// Metrics Endpoint (no auth)
	// ============================================

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============================================
	// Health Check Routes (no auth)
	// ============================================

	healthHandler := handlers.NewHealthHandler(
		b.config.Pool,
		b.config.Redis,
		b.config.NATS,
		b.config.Version,
		b.config.BuildTime,
	)
	healthHandler.RegisterRoutes(router)

	// ============================================
	// API v1 Routes
	// ============================================

	v1 := router.Group("/api/v1")

	// Auth опциональна: machine-to-machine API защищается JWT, когда
	// задан секрет. Health и metrics остаются открытыми в любом случае.
	if b.config.AuthSecret != "" {
		v1.Use(middleware.Auth(&middleware.AuthConfig{
			Secret: b.config.AuthSecret,
		}))
	}

	// Wallet routes
	if b.wallets != nil {
		walletHandler := handlers.NewWalletHandler(
			b.wallets.CreateWallet,
			b.wallets.GetWallet,
			b.wallets.ListTransactions,
			b.wallets.ListLedger,
		)
		walletHandler.RegisterRoutes(v1)
	}

	// Transfer routes (stricter rate limiting: это денежные операции)
	if b.transfers != nil {
		transferHandler := handlers.NewTransferHandler(b.transfers.ExecuteTransfer)
		transferGroup := v1.Group("")
		transferGroup.Use(middleware.TransactionRateLimit())
		transferHandler.RegisterRoutes(transferGroup)
	}

	// Interest routes
	if b.interest != nil {
		interestHandler := handlers.NewInterestHandler(
			b.interest.CreateAccount,
			b.interest.GetAccount,
			b.interest.CalculateDaily,
			b.interest.CalculateRange,
			b.interest.ListHistory,
		)
		interestHandler.RegisterRoutes(v1)
	}

	// ============================================
	// 404 Handler
	// ============================================

	router.NoRoute(func(c *gin.Context) {
		common.Error(c, 404, &common.APIError{
			Code:    common.ErrCodeNotFound,
			Message: "Endpoint not found",
			Details: map[string]interface{}{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			},
		})
	})

	return router
}

// ============================================
// Quick Setup Functions
// ============================================

// NewRouter создаёт роутер с базовой конфигурацией (для простых случаев).
func NewRouter(config *RouterConfig) *gin.Engine {
	return NewRouterBuilder(config).Build()
}

// NewDevelopmentRouter создаёт роутер для development окружения.
func NewDevelopmentRouter() *gin.Engine {
	config := DefaultRouterConfig()
	config.Environment = "development"
	return NewRouter(config)
}
