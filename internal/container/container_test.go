package container

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Haleralex/ledgerhub/internal/config"
)

// Тесты контейнера не поднимают реальные подключения: проверяется
// только сборка графа зависимостей. Пути с БД закрыты integration
// тестами репозиториев.

func TestNew(t *testing.T) {
	cfg := config.Development()
	c := New(cfg)

	require.NotNil(t, c)
	assert.Equal(t, cfg, c.config)
}

func TestContainer_Config(t *testing.T) {
	cfg := config.Development()
	c := New(cfg)

	assert.Equal(t, cfg, c.Config())
}

func TestContainer_GettersBeforeInit(t *testing.T) {
	c := New(config.Development())

	assert.Nil(t, c.Logger())
	assert.Nil(t, c.Pool())
	assert.Nil(t, c.HTTPServer())
	assert.Nil(t, c.WalletRepository())
	assert.Nil(t, c.AccountRepository())
	assert.Nil(t, c.UnitOfWorkFactory())
	assert.Nil(t, c.ExecuteTransferUseCase())
	assert.Nil(t, c.CalculateDailyInterestUseCase())
}

func TestContainer_InitLogger(t *testing.T) {
	t.Run("TextFormat", func(t *testing.T) {
		cfg := config.Development()
		cfg.Log.Format = "text"
		cfg.Log.Level = "debug"

		c := New(cfg)
		log := c.initLogger()

		require.NotNil(t, log)
		assert.True(t, log.Enabled(context.Background(), slog.LevelDebug))
	})

	t.Run("JSONFormat", func(t *testing.T) {
		cfg := config.Development()
		cfg.Log.Format = "json"
		cfg.Log.Level = "warn"

		c := New(cfg)
		log := c.initLogger()

		require.NotNil(t, log)
		assert.False(t, log.Enabled(context.Background(), slog.LevelInfo))
		assert.True(t, log.Enabled(context.Background(), slog.LevelWarn))
	})
}

func TestContainer_InitTelemetry_Disabled(t *testing.T) {
	cfg := config.Development()
	cfg.Telemetry.Enabled = false

	c := New(cfg)
	c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	err := c.initTelemetry(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c.telemetryShutdown)

	// No-op shutdown ничего не делает и не падает
	assert.NoError(t, c.telemetryShutdown(context.Background()))
}

func TestContainer_InitRedis_Disabled(t *testing.T) {
	cfg := config.Development()
	cfg.Redis.Enabled = false

	c := New(cfg)
	c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	err := c.initRedis(context.Background())
	require.NoError(t, err)
	assert.Nil(t, c.redisClient)
	assert.Nil(t, c.idempotencyCache)
}

func TestContainer_InitNATS_Disabled(t *testing.T) {
	cfg := config.Development()
	cfg.NATS.Enabled = false

	c := New(cfg)
	c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	err := c.initNATS()
	require.NoError(t, err)
	assert.Nil(t, c.natsConn)
}

func TestContainer_InitUseCases_InvalidRate(t *testing.T) {
	cfg := config.Development()
	cfg.Interest.AnnualRate = "not-a-rate"

	c := New(cfg)
	c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	c.initRepositories()

	err := c.initUseCases()
	assert.Error(t, err)
}

func TestContainer_WiringWithoutConnections(t *testing.T) {
	// Репозитории и use cases собираются поверх nil пула: создание
	// структур не трогает БД, запросы пошли бы только при вызове.
	cfg := config.Development()

	c := New(cfg)
	c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	c.initRepositories()

	require.NoError(t, c.initUseCases())

	assert.NotNil(t, c.createWalletUC)
	assert.NotNil(t, c.getWalletUC)
	assert.NotNil(t, c.executeTransfer)
	assert.NotNil(t, c.listTransactions)
	assert.NotNil(t, c.listLedger)
	assert.NotNil(t, c.createAccountUC)
	assert.NotNil(t, c.getAccountUC)
	assert.NotNil(t, c.calculateDaily)
	assert.NotNil(t, c.calculateRange)
	assert.NotNil(t, c.listHistory)

	c.initHTTPServer()
	require.NotNil(t, c.HTTPServer())
}

func TestContainer_StartRelay_WithoutNATS(t *testing.T) {
	c := New(config.Development())
	c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	// Без NATS соединения relay не запускается
	c.startRelay()
	assert.Nil(t, c.relay)
	assert.Nil(t, c.relayCancel)
}

func TestContainer_Health_WithoutConnections(t *testing.T) {
	// Без пула приложение нездорово; выключенные Redis/NATS
	// помечаются как disabled и статус не портят
	c := New(config.Development())
	c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	status := c.Health(context.Background())

	require.NotNil(t, status)
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "not configured", status.Checks["database"])
	assert.Equal(t, "disabled", status.Checks["redis"])
	assert.Equal(t, "disabled", status.Checks["nats"])
}

func TestContainer_Shutdown_Empty(t *testing.T) {
	// Shutdown контейнера без инициализированных компонентов - no-op
	c := New(config.Development())
	c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, c.Shutdown(ctx))
}

func TestNewBuilder(t *testing.T) {
	cfg := config.Development()
	b := NewBuilder(cfg)

	require.NotNil(t, b)
	assert.Equal(t, cfg, b.cfg)
}

func TestContainerBuilder_WithLogger(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := NewBuilder(config.Development()).WithLogger(log)

	assert.Equal(t, log, b.logger)
}

func TestContainerBuilder_Chaining(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	b := NewBuilder(config.Development()).
		WithLogger(log).
		WithPool(nil).
		WithEventPublisher(nil)

	require.NotNil(t, b)
	assert.Equal(t, log, b.logger)
}
