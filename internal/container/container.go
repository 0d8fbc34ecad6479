// Package container - Dependency Injection container for the application.
//
// Container управляет жизненным циклом всех зависимостей:
// - Создание (lazy initialization)
// - Доступ (getters)
// - Закрытие (cleanup в порядке, обратном созданию)
//
// Pattern: Composition Root
// - Все зависимости собираются в одном месте
// - Легко тестировать
// - Легко заменять реализации
package container

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	natsio "github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Haleralex/ledgerhub/internal/adapters/http"
	"github.com/Haleralex/ledgerhub/internal/application/ports"
	"github.com/Haleralex/ledgerhub/internal/application/usecases/interest"
	"github.com/Haleralex/ledgerhub/internal/application/usecases/transfer"
	"github.com/Haleralex/ledgerhub/internal/application/usecases/wallet"
	"github.com/Haleralex/ledgerhub/internal/config"
	"github.com/Haleralex/ledgerhub/internal/infrastructure/cache/redis"
	"github.com/Haleralex/ledgerhub/internal/infrastructure/messaging/nats"
	"github.com/Haleralex/ledgerhub/internal/infrastructure/persistence/postgres"
	"github.com/Haleralex/ledgerhub/internal/infrastructure/telemetry"
	"github.com/Haleralex/ledgerhub/internal/pkg/logger"
)

// ============================================
// Container
// ============================================

// Container - DI контейнер приложения.
type Container struct {
	config *config.Config
	logger *slog.Logger

	// Infrastructure
	pool              *pgxpool.Pool
	redisClient       *goredis.Client
	natsConn          *natsio.Conn
	relay             *nats.Relay
	relayCancel       context.CancelFunc
	relayDone         chan struct{}
	telemetryShutdown telemetry.ShutdownFunc

	// Repositories
	walletRepo   ports.WalletRepository
	logRepo      ports.TransactionLogRepository
	ledgerRepo   ports.LedgerRepository
	accountRepo  ports.AccountRepository
	interestRepo ports.InterestLogRepository
	outboxRepo   *postgres.OutboxRepository

	// Unit of Work
	uowFactory ports.UnitOfWorkFactory

	// Event Publisher (outbox: события коммитятся вместе с данными)
	eventPublisher ports.EventPublisher

	// Idempotency cache (nil при выключенном Redis)
	idempotencyCache ports.IdempotencyCache

	// Use Cases
	createWalletUC   *wallet.CreateWalletUseCase
	getWalletUC      *wallet.GetWalletUseCase
	executeTransfer  *transfer.ExecuteTransferUseCase
	listTransactions *transfer.ListTransactionsUseCase
	listLedger       *transfer.ListLedgerUseCase
	createAccountUC  *interest.CreateAccountUseCase
	getAccountUC     *interest.GetAccountUseCase
	calculateDaily   *interest.CalculateDailyInterestUseCase
	calculateRange   *interest.CalculateInterestRangeUseCase
	listHistory      *interest.ListInterestHistoryUseCase

	// HTTP
	httpServer *http.Server
}

// New создаёт новый контейнер с заданной конфигурацией.
func New(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// ============================================
// Initialization
// ============================================

// Initialize инициализирует все зависимости.
func (c *Container) Initialize(ctx context.Context) error {
	c.logger = c.initLogger()
	c.logger.Info("Initializing application container...")

	// 1. Telemetry (до всего остального: трейсы покрывают startup)
	if err := c.initTelemetry(ctx); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	// 2. Database
	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database connected")

	// 3. Redis (опционально)
	if err := c.initRedis(ctx); err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}

	// 4. NATS (опционально)
	if err := c.initNATS(); err != nil {
		return fmt.Errorf("failed to initialize nats: %w", err)
	}

	// 5. Repositories
	c.initRepositories()
	c.logger.Info("Repositories initialized")

	// 6. Use Cases
	if err := c.initUseCases(); err != nil {
		return fmt.Errorf("failed to initialize use cases: %w", err)
	}
	c.logger.Info("Use cases initialized")

	// 7. HTTP Server
	c.initHTTPServer()
	c.logger.Info("HTTP server initialized")

	c.logger.Info("Container initialization complete")
	return nil
}

// initLogger инициализирует логгер.
func (c *Container) initLogger() *slog.Logger {
	log := logger.New(&logger.Config{
		Level:     c.config.Log.Level,
		Format:    c.config.Log.Format,
		Output:    os.Stdout,
		AddSource: c.config.App.Debug,
	})

	slog.SetDefault(log)
	return log
}

// initTelemetry инициализирует OpenTelemetry tracer provider.
func (c *Container) initTelemetry(ctx context.Context) error {
	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        c.config.Telemetry.Enabled,
		ServiceName:    "ledgerhub",
		ServiceVersion: c.config.App.Version,
		Endpoint:       c.config.Telemetry.Endpoint,
		Insecure:       c.config.Telemetry.Insecure,
		SampleRatio:    c.config.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}

	c.telemetryShutdown = shutdown
	if c.config.Telemetry.Enabled {
		c.logger.Info("Tracing enabled", slog.String("endpoint", c.config.Telemetry.Endpoint))
	}
	return nil
}

// initDatabase инициализирует пул соединений к PostgreSQL.
func (c *Container) initDatabase(ctx context.Context) error {
	pool, err := postgres.NewConnectionPool(ctx, postgres.Config{
		Host:            c.config.Database.Host,
		Port:            c.config.Database.Port,
		Database:        c.config.Database.Database,
		User:            c.config.Database.User,
		Password:        c.config.Database.Password,
		SSLMode:         c.config.Database.SSLMode,
		MaxConns:        c.config.Database.MaxConnections,
		MinConns:        c.config.Database.MinConnections,
		MaxConnLifetime: c.config.Database.MaxConnLifetime,
		MaxConnIdleTime: c.config.Database.MaxConnIdleTime,
		ConnectTimeout:  c.config.Database.ConnectTimeout,
	})
	if err != nil {
		return err
	}

	c.pool = pool
	return nil
}

// initRedis подключает идемпотентный кэш, если Redis включён.
func (c *Container) initRedis(ctx context.Context) error {
	if !c.config.Redis.Enabled {
		c.logger.Info("Redis disabled, idempotency served by transaction log alone")
		return nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     c.config.Redis.Address,
		Password: c.config.Redis.Password,
		DB:       c.config.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	c.redisClient = client
	c.idempotencyCache = redis.NewIdempotencyCache(client, c.logger)
	c.logger.Info("Redis connected", slog.String("address", c.config.Redis.Address))
	return nil
}

// initNATS подключает брокер событий, если NATS включён.
func (c *Container) initNATS() error {
	if !c.config.NATS.Enabled {
		c.logger.Info("NATS disabled, domain events accumulate in outbox")
		return nil
	}

	conn, err := nats.Connect(c.config.NATS.URL)
	if err != nil {
		return err
	}

	c.natsConn = conn
	c.logger.Info("NATS connected", slog.String("url", c.config.NATS.URL))
	return nil
}

// initRepositories инициализирует репозитории.
func (c *Container) initRepositories() {
	c.walletRepo = postgres.NewWalletRepository(c.pool)
	c.logRepo = postgres.NewTransactionLogRepository(c.pool)
	c.ledgerRepo = postgres.NewLedgerRepository(c.pool)
	c.accountRepo = postgres.NewAccountRepository(c.pool)
	c.interestRepo = postgres.NewInterestLogRepository(c.pool)
	c.outboxRepo = postgres.NewOutboxRepository(c.pool)

	c.uowFactory = postgres.NewUnitOfWorkFactory(c.pool)

	// Outbox как EventPublisher: событие коммитится той же транзакцией,
	// что и изменение данных. Доставку в NATS выполняет relay.
	c.eventPublisher = c.outboxRepo
}

// initUseCases инициализирует use cases.
func (c *Container) initUseCases() error {
	uow := c.uowFactory.New()

	// Wallet
	c.createWalletUC = wallet.NewCreateWalletUseCase(c.walletRepo, c.eventPublisher, uow)
	c.getWalletUC = wallet.NewGetWalletUseCase(c.walletRepo)

	// Transfer
	c.executeTransfer = transfer.NewExecuteTransferUseCase(
		c.walletRepo,
		c.logRepo,
		c.ledgerRepo,
		c.eventPublisher,
		c.idempotencyCache,
		c.uowFactory,
	)
	c.listTransactions = transfer.NewListTransactionsUseCase(c.logRepo)
	c.listLedger = transfer.NewListLedgerUseCase(c.ledgerRepo)

	// Interest
	annualRate, err := c.config.Interest.Rate()
	if err != nil {
		return err
	}

	c.createAccountUC = interest.NewCreateAccountUseCase(c.accountRepo, c.eventPublisher, uow)
	c.getAccountUC = interest.NewGetAccountUseCase(c.accountRepo)
	c.calculateDaily = interest.NewCalculateDailyInterestUseCase(
		c.accountRepo,
		c.interestRepo,
		c.eventPublisher,
		c.uowFactory,
		annualRate,
	)
	c.calculateRange = interest.NewCalculateInterestRangeUseCase(c.calculateDaily)
	c.listHistory = interest.NewListInterestHistoryUseCase(c.interestRepo)

	return nil
}

// initHTTPServer инициализирует HTTP сервер.
func (c *Container) initHTTPServer() {
	routerConfig := &http.RouterConfig{
		Logger:         c.logger,
		Pool:           c.pool,
		Redis:          c.redisClient,
		NATS:           c.natsConn,
		Version:        c.config.App.Version,
		BuildTime:      c.config.App.BuildTime,
		Environment:    c.config.App.Environment,
		ServiceName:    "ledgerhub",
		AllowedOrigins: c.config.CORS.AllowedOrigins,
		AuthSecret:     c.config.Auth.Secret,
		TracingEnabled: c.config.Telemetry.Enabled,
	}

	router := http.NewRouterBuilder(routerConfig).
		WithWalletUseCases(&http.WalletUseCases{
			CreateWallet:     c.createWalletUC,
			GetWallet:        c.getWalletUC,
			ListTransactions: c.listTransactions,
			ListLedger:       c.listLedger,
		}).
		WithTransferUseCases(&http.TransferUseCases{
			ExecuteTransfer: c.executeTransfer,
		}).
		WithInterestUseCases(&http.InterestUseCases{
			CreateAccount:  c.createAccountUC,
			GetAccount:     c.getAccountUC,
			CalculateDaily: c.calculateDaily,
			CalculateRange: c.calculateRange,
			ListHistory:    c.listHistory,
		}).
		Build()

	serverConfig := &http.ServerConfig{
		Host:            c.config.Server.Host,
		Port:            strconv.Itoa(c.config.Server.Port),
		ReadTimeout:     c.config.Server.ReadTimeout,
		WriteTimeout:    c.config.Server.WriteTimeout,
		IdleTimeout:     c.config.Server.IdleTimeout,
		ShutdownTimeout: c.config.Server.ShutdownTimeout,
		Logger:          c.logger,
	}

	c.httpServer = http.NewServer(serverConfig, router)
}

// startRelay запускает outbox relay, если NATS подключён.
func (c *Container) startRelay() {
	if c.natsConn == nil {
		return
	}

	publisher := nats.NewPublisher(c.natsConn, c.logger)
	c.relay = nats.NewRelay(
		c.outboxRepo,
		publisher,
		c.uowFactory,
		nats.RelayConfig{
			Interval:     c.config.Outbox.RelayInterval,
			BatchSize:    c.config.Outbox.BatchSize,
			CleanupAfter: c.config.Outbox.CleanupAfter,
		},
		c.logger,
	)

	relayCtx, cancel := context.WithCancel(context.Background())
	c.relayCancel = cancel
	c.relayDone = make(chan struct{})

	go func() {
		defer close(c.relayDone)
		c.relay.Run(relayCtx)
	}()
}

// ============================================
// Getters
// ============================================

// Config возвращает конфигурацию.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger возвращает логгер.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Pool возвращает пул соединений к БД.
func (c *Container) Pool() *pgxpool.Pool {
	return c.pool
}

// HTTPServer возвращает HTTP сервер.
func (c *Container) HTTPServer() *http.Server {
	return c.httpServer
}

// WalletRepository возвращает репозиторий кошельков.
func (c *Container) WalletRepository() ports.WalletRepository {
	return c.walletRepo
}

// AccountRepository возвращает репозиторий процентных счетов.
func (c *Container) AccountRepository() ports.AccountRepository {
	return c.accountRepo
}

// UnitOfWorkFactory возвращает фабрику Unit of Work.
func (c *Container) UnitOfWorkFactory() ports.UnitOfWorkFactory {
	return c.uowFactory
}

// ExecuteTransferUseCase возвращает движок переводов.
func (c *Container) ExecuteTransferUseCase() *transfer.ExecuteTransferUseCase {
	return c.executeTransfer
}

// CalculateDailyInterestUseCase возвращает движок начисления процентов.
func (c *Container) CalculateDailyInterestUseCase() *interest.CalculateDailyInterestUseCase {
	return c.calculateDaily
}

// ============================================
// Health Check
// ============================================

// HealthStatus - агрегированный статус здоровья приложения.
type HealthStatus struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// Health опрашивает все подключённые зависимости. Выключенные
// компоненты (Redis, NATS) помечаются как disabled и не влияют
// на итоговый статус.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:  "healthy",
		Version: c.config.App.Version,
		Checks:  make(map[string]string),
	}

	// Database
	if c.pool == nil {
		status.Status = "unhealthy"
		status.Checks["database"] = "not configured"
	} else if err := c.pool.Ping(ctx); err != nil {
		status.Status = "unhealthy"
		status.Checks["database"] = "error: " + err.Error()
	} else {
		status.Checks["database"] = "ok"
	}

	// Redis
	if c.redisClient == nil {
		status.Checks["redis"] = "disabled"
	} else if err := c.redisClient.Ping(ctx).Err(); err != nil {
		status.Status = "unhealthy"
		status.Checks["redis"] = "error: " + err.Error()
	} else {
		status.Checks["redis"] = "ok"
	}

	// NATS
	if c.natsConn == nil {
		status.Checks["nats"] = "disabled"
	} else if !c.natsConn.IsConnected() {
		status.Status = "unhealthy"
		status.Checks["nats"] = "disconnected"
	} else {
		status.Checks["nats"] = "ok"
	}

	return status
}

// ============================================
// Run
// ============================================

// Run запускает приложение и блокируется до сигнала завершения.
func (c *Container) Run() error {
	c.logger.Info("Starting LedgerHub API Server",
		slog.String("version", c.config.App.Version),
		slog.String("environment", c.config.App.Environment),
		slog.String("address", c.config.Server.Address()),
	)

	c.startRelay()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := c.httpServer.RunWithContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.config.Server.ShutdownTimeout)
	defer cancel()

	if shutdownErr := c.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}

	return err
}

// ============================================
// Shutdown
// ============================================

// Shutdown останавливает компоненты в порядке, обратном запуску:
// relay -> NATS -> Redis -> database -> tracer. HTTP сервер к этому
// моменту уже задрейнен в Run.
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	var errs []error

	// 1. Relay: прекращаем публикацию, недоставленные события
	// останутся в outbox до следующего старта
	if c.relayCancel != nil {
		c.relayCancel()
		select {
		case <-c.relayDone:
		case <-ctx.Done():
			c.logger.Warn("Relay stop timeout")
		}
		c.relayCancel = nil
	}

	// 2. NATS: drain досылает буферизованные сообщения
	if c.natsConn != nil {
		if err := c.natsConn.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("NATS drain: %w", err))
		}
		c.natsConn = nil
	}

	// 3. Redis
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
		c.redisClient = nil
	}

	// 4. Database (даём время на завершение транзакций)
	if c.pool != nil {
		done := make(chan struct{})
		go func() {
			c.pool.Close()
			close(done)
		}()

		select {
		case <-done:
			c.logger.Info("Database connection closed")
		case <-ctx.Done():
			c.logger.Warn("Database close timeout")
		}
		c.pool = nil
	}

	// 5. Tracer: сбрасываем недоотправленные span'ы
	if c.telemetryShutdown != nil {
		if err := c.telemetryShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
		c.telemetryShutdown = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	c.logger.Info("Container shutdown complete")
	return nil
}

// ============================================
// Builder Pattern (Alternative)
// ============================================

// ContainerBuilder - builder для создания контейнера с кастомными
// компонентами. Тесты подставляют готовый пул или publisher вместо
// реальных подключений.
type ContainerBuilder struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	eventPublisher ports.EventPublisher
}

// NewBuilder создаёт новый builder.
func NewBuilder(cfg *config.Config) *ContainerBuilder {
	return &ContainerBuilder{
		cfg: cfg,
	}
}

// WithLogger устанавливает кастомный логгер.
func (b *ContainerBuilder) WithLogger(logger *slog.Logger) *ContainerBuilder {
	b.logger = logger
	return b
}

// WithPool устанавливает готовый пул соединений.
func (b *ContainerBuilder) WithPool(pool *pgxpool.Pool) *ContainerBuilder {
	b.pool = pool
	return b
}

// WithEventPublisher устанавливает кастомный event publisher.
func (b *ContainerBuilder) WithEventPublisher(ep ports.EventPublisher) *ContainerBuilder {
	b.eventPublisher = ep
	return b
}

// Build создаёт контейнер.
func (b *ContainerBuilder) Build(ctx context.Context) (*Container, error) {
	c := New(b.cfg)

	if b.logger != nil {
		c.logger = b.logger
	} else {
		c.logger = c.initLogger()
	}

	if err := c.initTelemetry(ctx); err != nil {
		return nil, err
	}

	if b.pool != nil {
		c.pool = b.pool
	} else {
		if err := c.initDatabase(ctx); err != nil {
			return nil, err
		}
	}

	if err := c.initRedis(ctx); err != nil {
		return nil, err
	}
	if err := c.initNATS(); err != nil {
		return nil, err
	}

	c.initRepositories()

	if b.eventPublisher != nil {
		c.eventPublisher = b.eventPublisher
	}

	if err := c.initUseCases(); err != nil {
		return nil, err
	}
	c.initHTTPServer()

	return c, nil
}
