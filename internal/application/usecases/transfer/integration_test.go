//go:build integration

// Package transfer - интеграционные тесты движка переводов с testcontainers.
//
// Запуск тестов:
//
//	go test -tags=integration ./internal/application/usecases/transfer/...
//
// Требования:
//   - Docker Desktop запущен
//
// Что тестируем:
//   - Полный flow движка с реальной БД (не моки!)
//   - Конкурентные дубликаты одного ключа идемпотентности:
//     ровно одна запись журнала и одна ledger-пара
//   - Встречные переводы по одной паре кошельков: оба завершаются
//     без deadlock благодаря блокировке кошельков в порядке id
package transfer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Haleralex/ledgerhub/internal/application/dtos"
	"github.com/Haleralex/ledgerhub/internal/domain/entities"
	"github.com/Haleralex/ledgerhub/internal/domain/valueobjects"
	"github.com/Haleralex/ledgerhub/internal/infrastructure/persistence/postgres"
)

// ============================================
// Test Harness
// ============================================

// engineHarness собирает движок поверх реальных репозиториев.
type engineHarness struct {
	pool       *pgxpool.Pool
	walletRepo *postgres.WalletRepository
	engine     *ExecuteTransferUseCase
}

var sharedEngineHarness *engineHarness

// setupEngineDB поднимает переиспользуемый PostgreSQL контейнер и
// собирает движок. Один контейнер на весь пакет, данные чистятся
// между тестами.
func setupEngineDB(t *testing.T) *engineHarness {
	t.Helper()

	if sharedEngineHarness != nil {
		cleanupEngineTables(t, sharedEngineHarness.pool)
		return sharedEngineHarness
	}

	ctx := context.Background()

	migrationsPath := filepath.Join("..", "..", "..", "..", "migrations")

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		tcpostgres.WithInitScripts(
			filepath.Join(migrationsPath, "000001_create_wallets.up.sql"),
			filepath.Join(migrationsPath, "000002_create_transaction_logs.up.sql"),
			filepath.Join(migrationsPath, "000003_create_ledgers.up.sql"),
			filepath.Join(migrationsPath, "000004_create_accounts.up.sql"),
			filepath.Join(migrationsPath, "000005_create_interest_logs.up.sql"),
			filepath.Join(migrationsPath, "000006_create_outbox.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)

	// Конкурентные тесты держат несколько транзакций одновременно
	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	walletRepo := postgres.NewWalletRepository(pool)
	engine := NewExecuteTransferUseCase(
		walletRepo,
		postgres.NewTransactionLogRepository(pool),
		postgres.NewLedgerRepository(pool),
		postgres.NewOutboxRepository(pool),
		nil, // без Redis: идемпотентность обеспечивает сам журнал
		postgres.NewUnitOfWorkFactory(pool),
	)

	sharedEngineHarness = &engineHarness{
		pool:       pool,
		walletRepo: walletRepo,
		engine:     engine,
	}

	return sharedEngineHarness
}

func cleanupEngineTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	tables := []string{"outbox", "interest_logs", "accounts", "ledgers", "transaction_logs", "wallets"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			t.Logf("Warning: failed to cleanup %s: %v", table, err)
		}
	}
}

// mustCreateWallet сохраняет кошелёк с заданным балансом.
func mustCreateWallet(t *testing.T, h *engineHarness, balance string) *entities.Wallet {
	t.Helper()

	wallet := entities.NewWallet(valueobjects.MustMoney(balance))
	require.NoError(t, h.walletRepo.Save(context.Background(), wallet))
	return wallet
}

func walletBalance(t *testing.T, h *engineHarness, id uuid.UUID) string {
	t.Helper()

	wallet, err := h.walletRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return wallet.Balance().String()
}

func countRows(t *testing.T, h *engineHarness, query string, args ...interface{}) int {
	t.Helper()

	var n int
	require.NoError(t, h.pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

// ============================================
// Concurrent duplicates of one idempotency key
// ============================================

func TestExecuteTransfer_Integration_ConcurrentDuplicateKey(t *testing.T) {
	h := setupEngineDB(t)
	ctx := context.Background()

	from := mustCreateWallet(t, h, "1000.00")
	to := mustCreateWallet(t, h, "1000.00")

	const workers = 10
	key := "dup-key-" + uuid.NewString()

	cmd := dtos.ExecuteTransferCommand{
		FromWalletID:   from.ID().String(),
		ToWalletID:     to.ID().String(),
		Amount:         "100.00",
		IdempotencyKey: key,
	}

	var wg sync.WaitGroup
	results := make([]*dtos.TransferResultDTO, workers)
	execErrs := make([]error, workers)

	// Все воркеры стартуют одновременно по закрытию канала
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			results[idx], execErrs[idx] = h.engine.Execute(ctx, cmd)
		}(i)
	}
	close(start)
	wg.Wait()

	// Каждый дубликат получает ответ, а не ошибку: проигравшие гонку
	// вставки перечитывают зафиксированную запись
	for i := 0; i < workers; i++ {
		require.NoError(t, execErrs[i], "worker %d", i)
		require.NotNil(t, results[i], "worker %d", i)
		assert.True(t, results[i].Success, "worker %d", i)
	}

	// Все ответы указывают на одну и ту же запись журнала
	txID := results[0].Transaction.ID
	for i := 1; i < workers; i++ {
		assert.Equal(t, txID, results[i].Transaction.ID, "worker %d", i)
	}

	// Деньги двинулись ровно один раз
	assert.Equal(t, "900.00", walletBalance(t, h, from.ID()))
	assert.Equal(t, "1100.00", walletBalance(t, h, to.ID()))

	// Одна запись журнала и одна ledger-пара на ключ
	assert.Equal(t, 1, countRows(t, h,
		"SELECT COUNT(*) FROM transaction_logs WHERE idempotency_key = $1", key))
	assert.Equal(t, 2, countRows(t, h,
		"SELECT COUNT(*) FROM ledgers WHERE transaction_log_id = $1", txID))
}

// ============================================
// Opposite-direction transfers on one wallet pair
// ============================================

func TestExecuteTransfer_Integration_OppositeDirectionsNoDeadlock(t *testing.T) {
	h := setupEngineDB(t)

	walletA := mustCreateWallet(t, h, "1000.00")
	walletB := mustCreateWallet(t, h, "1000.00")

	// Оба направления блокируют кошельки в порядке id, поэтому
	// зависнуть навсегда они не могут; таймаут ловит регрессию
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const rounds = 5

	aToBErrs := make([]error, rounds)
	bToAErrs := make([]error, rounds)

	// Каждый раунд - ровно два встречных перевода, стартующих вместе
	for i := 0; i < rounds; i++ {
		var wg sync.WaitGroup
		wg.Add(2)

		go func(idx int) {
			defer wg.Done()
			_, aToBErrs[idx] = h.engine.Execute(ctx, dtos.ExecuteTransferCommand{
				FromWalletID:   walletA.ID().String(),
				ToWalletID:     walletB.ID().String(),
				Amount:         "100.00",
				IdempotencyKey: fmt.Sprintf("a-to-b-%d-%s", idx, walletA.ID()),
			})
		}(i)

		go func(idx int) {
			defer wg.Done()
			_, bToAErrs[idx] = h.engine.Execute(ctx, dtos.ExecuteTransferCommand{
				FromWalletID:   walletB.ID().String(),
				ToWalletID:     walletA.ID().String(),
				Amount:         "40.00",
				IdempotencyKey: fmt.Sprintf("b-to-a-%d-%s", idx, walletB.ID()),
			})
		}(i)

		wg.Wait()
	}

	for i := 0; i < rounds; i++ {
		require.NoError(t, aToBErrs[i], "a->b round %d", i)
		require.NoError(t, bToAErrs[i], "b->a round %d", i)
	}

	// 5 x (-100 + 40) = -300 для A, +300 для B
	assert.Equal(t, "700.00", walletBalance(t, h, walletA.ID()))
	assert.Equal(t, "1300.00", walletBalance(t, h, walletB.ID()))

	// Каждый перевод оставил COMPLETED запись и ledger-пару
	assert.Equal(t, 2*rounds, countRows(t, h,
		"SELECT COUNT(*) FROM transaction_logs WHERE status = 'COMPLETED'"))
	assert.Equal(t, 4*rounds, countRows(t, h, "SELECT COUNT(*) FROM ledgers"))
	assert.Equal(t, 0, countRows(t, h,
		"SELECT COUNT(*) FROM transaction_logs WHERE status = 'PENDING'"))
}
