package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Haleralex/ledgerhub/internal/application/dtos"
	"github.com/Haleralex/ledgerhub/internal/application/ports"
	"github.com/Haleralex/ledgerhub/internal/domain/entities"
	domainErrors "github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/Haleralex/ledgerhub/internal/domain/events"
	"github.com/Haleralex/ledgerhub/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// Mock Repositories

type mockWalletRepo struct {
	saveFunc              func(ctx context.Context, wallet *entities.Wallet) error
	findByIDFunc          func(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
	findByIDForUpdateFunc func(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
	updateBalanceFunc     func(ctx context.Context, wallet *entities.Wallet) error
}

func (m *mockWalletRepo) Save(ctx context.Context, wallet *entities.Wallet) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, wallet)
	}
	return nil
}

func (m *mockWalletRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, domainErrors.ErrWalletNotFound
}

func (m *mockWalletRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	if m.findByIDForUpdateFunc != nil {
		return m.findByIDForUpdateFunc(ctx, id)
	}
	// Тестам без явной блокировочной логики достаточно findByIDFunc.
	return m.FindByID(ctx, id)
}

func (m *mockWalletRepo) UpdateBalance(ctx context.Context, wallet *entities.Wallet) error {
	if m.updateBalanceFunc != nil {
		return m.updateBalanceFunc(ctx, wallet)
	}
	return nil
}

type mockTransactionLogRepo struct {
	insertFunc               func(ctx context.Context, log *entities.TransactionLog) error
	findByIDFunc             func(ctx context.Context, id uuid.UUID) (*entities.TransactionLog, error)
	findByIdempotencyKeyFunc func(ctx context.Context, key string) (*entities.TransactionLog, error)
	markCompletedFunc        func(ctx context.Context, log *entities.TransactionLog) error
	markFailedFunc           func(ctx context.Context, log *entities.TransactionLog) error
	listByWalletFunc         func(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.TransactionLog, error)
}

func (m *mockTransactionLogRepo) Insert(ctx context.Context, log *entities.TransactionLog) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, log)
	}
	return nil
}

func (m *mockTransactionLogRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.TransactionLog, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, domainErrors.ErrTransactionNotFound
}

func (m *mockTransactionLogRepo) FindByIdempotencyKey(ctx context.Context, key string) (*entities.TransactionLog, error) {
	if m.findByIdempotencyKeyFunc != nil {
		return m.findByIdempotencyKeyFunc(ctx, key)
	}
	return nil, domainErrors.ErrTransactionNotFound
}

func (m *mockTransactionLogRepo) MarkCompleted(ctx context.Context, log *entities.TransactionLog) error {
	if m.markCompletedFunc != nil {
		return m.markCompletedFunc(ctx, log)
	}
	return nil
}

func (m *mockTransactionLogRepo) MarkFailed(ctx context.Context, log *entities.TransactionLog) error {
	if m.markFailedFunc != nil {
		return m.markFailedFunc(ctx, log)
	}
	return nil
}

func (m *mockTransactionLogRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.TransactionLog, error) {
	if m.listByWalletFunc != nil {
		return m.listByWalletFunc(ctx, walletID, offset, limit)
	}
	return nil, nil
}

type mockLedgerRepo struct {
	insertPairFunc   func(ctx context.Context, debit, credit *entities.LedgerEntry) error
	listByWalletFunc func(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.LedgerEntry, error)
}

func (m *mockLedgerRepo) InsertPair(ctx context.Context, debit, credit *entities.LedgerEntry) error {
	if m.insertPairFunc != nil {
		return m.insertPairFunc(ctx, debit, credit)
	}
	return nil
}

func (m *mockLedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.LedgerEntry, error) {
	if m.listByWalletFunc != nil {
		return m.listByWalletFunc(ctx, walletID, offset, limit)
	}
	return nil, nil
}

type mockEventPublisher struct {
	publishedEvents []events.DomainEvent
	publishFunc     func(ctx context.Context, event events.DomainEvent) error
}

func (m *mockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	m.publishedEvents = append(m.publishedEvents, event)
	if m.publishFunc != nil {
		return m.publishFunc(ctx, event)
	}
	return nil
}

func (m *mockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	m.publishedEvents = append(m.publishedEvents, evts...)
	return nil
}

type mockUnitOfWork struct {
	executeFunc func(ctx context.Context, fn func(context.Context) error) error
}

func (m *mockUnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, fn)
	}
	return fn(ctx)
}

func (m *mockUnitOfWork) ExecuteWithResult(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	return fn(ctx)
}

type mockUnitOfWorkFactory struct {
	newFunc              func() ports.UnitOfWork
	newSerializableFunc  func() ports.UnitOfWork
	newReadCommittedFunc func() ports.UnitOfWork
}

func (m *mockUnitOfWorkFactory) New() ports.UnitOfWork {
	if m.newFunc != nil {
		return m.newFunc()
	}
	return &mockUnitOfWork{}
}

func (m *mockUnitOfWorkFactory) NewSerializable() ports.UnitOfWork {
	if m.newSerializableFunc != nil {
		return m.newSerializableFunc()
	}
	return &mockUnitOfWork{}
}

func (m *mockUnitOfWorkFactory) NewReadCommitted() ports.UnitOfWork {
	if m.newReadCommittedFunc != nil {
		return m.newReadCommittedFunc()
	}
	return &mockUnitOfWork{}
}

type mockIdempotencyCache struct {
	mu       sync.Mutex
	entries  map[string]uuid.UUID
	setCalls int
}

func newMockIdempotencyCache() *mockIdempotencyCache {
	return &mockIdempotencyCache{entries: make(map[string]uuid.UUID)}
}

func (m *mockIdempotencyCache) Get(ctx context.Context, key string) (uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.entries[key]
	return id, ok
}

func (m *mockIdempotencyCache) Set(ctx context.Context, key string, logID uuid.UUID, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = logID
	m.setCalls++
}

// Test fixture helpers

func newTestWallet(id uuid.UUID, balance string) *entities.Wallet {
	now := time.Now().UTC()
	return entities.ReconstructWallet(id, valueobjects.MustMoney(balance), now, now)
}

func newStoredLog(key string, from, to uuid.UUID, amount string, status entities.TransactionStatus, errorMessage string) *entities.TransactionLog {
	now := time.Now().UTC().Add(-time.Hour)
	return entities.ReconstructTransactionLog(
		uuid.New(), key, from, to,
		valueobjects.MustMoney(amount),
		status, errorMessage, now, now,
	)
}

func newTransferUseCase(
	wallets *mockWalletRepo,
	logs *mockTransactionLogRepo,
	ledger *mockLedgerRepo,
	publisher *mockEventPublisher,
	cache ports.IdempotencyCache,
) *ExecuteTransferUseCase {
	return NewExecuteTransferUseCase(wallets, logs, ledger, publisher, cache, &mockUnitOfWorkFactory{})
}

// TestExecuteTransferUseCase_Success тестирует успешный перевод 250.00
func TestExecuteTransferUseCase_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	fromID := uuid.New()
	toID := uuid.New()
	idempotencyKey := uuid.New().String()

	fromWallet := newTestWallet(fromID, "1000.00")
	toWallet := newTestWallet(toID, "500.00")

	updatedBalances := make(map[uuid.UUID]string)
	var insertedLog, completedLog *entities.TransactionLog
	var insertedDebit, insertedCredit *entities.LedgerEntry

	walletRepo := &mockWalletRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
			switch id {
			case fromID:
				return fromWallet, nil
			case toID:
				return toWallet, nil
			}
			return nil, domainErrors.ErrWalletNotFound
		},
		updateBalanceFunc: func(ctx context.Context, w *entities.Wallet) error {
			updatedBalances[w.ID()] = w.Balance().String()
			return nil
		},
	}

	logRepo := &mockTransactionLogRepo{
		insertFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			insertedLog = log
			return nil
		},
		markCompletedFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			completedLog = log
			return nil
		},
	}

	ledgerRepo := &mockLedgerRepo{
		insertPairFunc: func(ctx context.Context, debit, credit *entities.LedgerEntry) error {
			insertedDebit, insertedCredit = debit, credit
			return nil
		},
	}

	publisher := &mockEventPublisher{}
	cache := newMockIdempotencyCache()
	useCase := newTransferUseCase(walletRepo, logRepo, ledgerRepo, publisher, cache)

	cmd := dtos.ExecuteTransferCommand{
		FromWalletID:   fromID.String(),
		ToWalletID:     toID.String(),
		Amount:         "250.00",
		IdempotencyKey: idempotencyKey,
	}

	// Act
	result, err := useCase.Execute(ctx, cmd)

	// Assert
	AssertNoError(t, err, "Execute")
	AssertNotNil(t, result, "result")

	if !result.Success || result.IsIdempotent {
		t.Errorf("Expected Success=true IsIdempotent=false, got Success=%v IsIdempotent=%v", result.Success, result.IsIdempotent)
	}
	if result.Transaction.Status != string(entities.TransactionStatusCompleted) {
		t.Errorf("Expected status COMPLETED, got %s", result.Transaction.Status)
	}
	if result.Transaction.Amount != "250.00" {
		t.Errorf("Expected amount 250.00, got %s", result.Transaction.Amount)
	}

	// Запись журнала вставлена PENDING и доведена до COMPLETED
	AssertNotNil(t, insertedLog, "inserted log")
	AssertNotNil(t, completedLog, "completed log")
	if insertedLog.ID() != completedLog.ID() {
		t.Error("Expected the same log row to be inserted and completed")
	}

	// Балансы обновлены у обоих кошельков
	if updatedBalances[fromID] != "750.00" {
		t.Errorf("Expected source balance 750.00, got %s", updatedBalances[fromID])
	}
	if updatedBalances[toID] != "750.00" {
		t.Errorf("Expected destination balance 750.00, got %s", updatedBalances[toID])
	}

	// Двойная запись: DEBIT у отправителя, CREDIT у получателя,
	// общий transaction_log_id
	AssertNotNil(t, insertedDebit, "debit entry")
	AssertNotNil(t, insertedCredit, "credit entry")
	if insertedDebit.WalletID() != fromID || insertedCredit.WalletID() != toID {
		t.Error("Ledger pair attached to wrong wallets")
	}
	if insertedDebit.TransactionLogID() != insertedLog.ID() || insertedCredit.TransactionLogID() != insertedLog.ID() {
		t.Error("Ledger pair must reference the transaction log")
	}
	if insertedDebit.BalanceBefore().String() != "1000.00" || insertedDebit.BalanceAfter().String() != "750.00" {
		t.Errorf("Debit snapshot wrong: %s -> %s", insertedDebit.BalanceBefore(), insertedDebit.BalanceAfter())
	}
	if insertedCredit.BalanceBefore().String() != "500.00" || insertedCredit.BalanceAfter().String() != "750.00" {
		t.Errorf("Credit snapshot wrong: %s -> %s", insertedCredit.BalanceBefore(), insertedCredit.BalanceAfter())
	}

	// Сохранение суммы: 1000 + 500 = 750 + 750
	total := valueobjects.MustMoney(updatedBalances[fromID]).Add(valueobjects.MustMoney(updatedBalances[toID]))
	if total.String() != "1500.00" {
		t.Errorf("Conservation violated: total %s", total)
	}

	// Событие TransferCompleted опубликовано внутри транзакции
	if len(publisher.publishedEvents) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(publisher.publishedEvents))
	}
	if publisher.publishedEvents[0].EventType() != events.EventTypeTransferCompleted {
		t.Errorf("Expected transfer.completed event, got %s", publisher.publishedEvents[0].EventType())
	}

	// Терминальный результат закэширован
	if cachedID, ok := cache.Get(ctx, idempotencyKey); !ok || cachedID != insertedLog.ID() {
		t.Error("Expected completed log to be cached by idempotency key")
	}
}

// TestExecuteTransferUseCase_MissingIdempotencyKey тестирует отказ без ключа
func TestExecuteTransferUseCase_MissingIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	inserted := false
	logRepo := &mockTransactionLogRepo{
		insertFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			inserted = true
			return nil
		},
	}
	useCase := newTransferUseCase(&mockWalletRepo{}, logRepo, &mockLedgerRepo{}, &mockEventPublisher{}, nil)

	_, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   uuid.New().String(),
		ToWalletID:     uuid.New().String(),
		Amount:         "10.00",
		IdempotencyKey: "",
	})

	if !errors.Is(err, domainErrors.ErrMissingIdempotencyKey) {
		t.Fatalf("Expected ErrMissingIdempotencyKey, got: %v", err)
	}
	if inserted {
		t.Error("No writes may happen when the idempotency key is missing")
	}
}

// TestExecuteTransferUseCase_InvalidAmounts тестирует отказ до I/O
// на невалидных суммах
func TestExecuteTransferUseCase_InvalidAmounts(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		amount string
	}{
		{"zero", "0"},
		{"zero with scale", "0.00"},
		{"negative", "-25.00"},
		{"not a number", "abc"},
		{"sub-cent precision", "10.005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inserted := false
			logRepo := &mockTransactionLogRepo{
				insertFunc: func(ctx context.Context, log *entities.TransactionLog) error {
					inserted = true
					return nil
				},
			}
			useCase := newTransferUseCase(&mockWalletRepo{}, logRepo, &mockLedgerRepo{}, &mockEventPublisher{}, nil)

			_, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
				FromWalletID:   uuid.New().String(),
				ToWalletID:     uuid.New().String(),
				Amount:         tt.amount,
				IdempotencyKey: uuid.New().String(),
			})

			if !domainErrors.IsValidation(err) {
				t.Fatalf("Expected validation error for %q, got: %v", tt.amount, err)
			}
			if inserted {
				t.Error("No writes may happen for an invalid amount")
			}
		})
	}
}

// TestExecuteTransferUseCase_SelfTransfer тестирует отказ перевода
// самому себе
func TestExecuteTransferUseCase_SelfTransfer(t *testing.T) {
	ctx := context.Background()
	walletID := uuid.New().String()
	useCase := newTransferUseCase(&mockWalletRepo{}, &mockTransactionLogRepo{}, &mockLedgerRepo{}, &mockEventPublisher{}, nil)

	_, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   walletID,
		ToWalletID:     walletID,
		Amount:         "10.00",
		IdempotencyKey: uuid.New().String(),
	})

	if !domainErrors.IsBusinessRuleViolation(err) {
		t.Fatalf("Expected business rule violation, got: %v", err)
	}
}

// TestExecuteTransferUseCase_InsufficientFunds тестирует фиксацию FAILED
// при нехватке средств
func TestExecuteTransferUseCase_InsufficientFunds(t *testing.T) {
	// Arrange: у отправителя 10.00, переводим 50.00
	ctx := context.Background()
	fromID := uuid.New()
	toID := uuid.New()

	var failedLog *entities.TransactionLog
	ledgerCalled := false
	balanceUpdated := false

	walletRepo := &mockWalletRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
			if id == fromID {
				return newTestWallet(fromID, "10.00"), nil
			}
			return newTestWallet(toID, "0.00"), nil
		},
		updateBalanceFunc: func(ctx context.Context, w *entities.Wallet) error {
			balanceUpdated = true
			return nil
		},
	}
	logRepo := &mockTransactionLogRepo{
		markFailedFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			failedLog = log
			return nil
		},
	}
	ledgerRepo := &mockLedgerRepo{
		insertPairFunc: func(ctx context.Context, debit, credit *entities.LedgerEntry) error {
			ledgerCalled = true
			return nil
		},
	}
	publisher := &mockEventPublisher{}
	useCase := newTransferUseCase(walletRepo, logRepo, ledgerRepo, publisher, nil)

	// Act
	result, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   fromID.String(),
		ToWalletID:     toID.String(),
		Amount:         "50.00",
		IdempotencyKey: uuid.New().String(),
	})

	// Assert
	if result != nil {
		t.Fatal("Expected nil result on insufficient funds")
	}
	if !domainErrors.IsInsufficientFunds(err) {
		t.Fatalf("Expected insufficient funds error, got: %v", err)
	}
	AssertErrorContains(t, err, "available 10.00")
	AssertErrorContains(t, err, "required 50.00")

	// FAILED-запись закоммичена с непустым сообщением
	AssertNotNil(t, failedLog, "failed log")
	if !failedLog.IsFailed() || failedLog.ErrorMessage() == "" {
		t.Errorf("Expected FAILED log with error message, got status=%s message=%q", failedLog.Status(), failedLog.ErrorMessage())
	}

	// Ни ledger-записей, ни изменения балансов
	if ledgerCalled {
		t.Error("No ledger rows may be written for a failed transfer")
	}
	if balanceUpdated {
		t.Error("No balance may change for a failed transfer")
	}

	// Событие отказа опубликовано
	if len(publisher.publishedEvents) != 1 || publisher.publishedEvents[0].EventType() != events.EventTypeTransferFailed {
		t.Error("Expected a single transfer.failed event")
	}
}

// TestExecuteTransferUseCase_WalletNotFound тестирует фиксацию FAILED
// при отсутствии кошелька
func TestExecuteTransferUseCase_WalletNotFound(t *testing.T) {
	ctx := context.Background()
	fromID := uuid.New()
	toID := uuid.New()

	var failedLog *entities.TransactionLog
	walletRepo := &mockWalletRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
			if id == fromID {
				return newTestWallet(fromID, "100.00"), nil
			}
			return nil, domainErrors.ErrWalletNotFound
		},
	}
	logRepo := &mockTransactionLogRepo{
		markFailedFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			failedLog = log
			return nil
		},
	}
	useCase := newTransferUseCase(walletRepo, logRepo, &mockLedgerRepo{}, &mockEventPublisher{}, nil)

	_, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   fromID.String(),
		ToWalletID:     toID.String(),
		Amount:         "25.00",
		IdempotencyKey: uuid.New().String(),
	})

	if !errors.Is(err, domainErrors.ErrWalletNotFound) {
		t.Fatalf("Expected ErrWalletNotFound, got: %v", err)
	}
	AssertErrorContains(t, err, toID.String())

	AssertNotNil(t, failedLog, "failed log")
	if failedLog.ErrorMessage() == "" {
		t.Error("Expected failure reason on the log")
	}
}

// TestExecuteTransferUseCase_ReplayCompleted тестирует replay успешного
// перевода: тот же id, статус и суммы, без записей
func TestExecuteTransferUseCase_ReplayCompleted(t *testing.T) {
	ctx := context.Background()
	fromID := uuid.New()
	toID := uuid.New()
	key := uuid.New().String()
	stored := newStoredLog(key, fromID, toID, "250.00", entities.TransactionStatusCompleted, "")

	inserted := false
	logRepo := &mockTransactionLogRepo{
		findByIdempotencyKeyFunc: func(ctx context.Context, k string) (*entities.TransactionLog, error) {
			if k == key {
				return stored, nil
			}
			return nil, domainErrors.ErrTransactionNotFound
		},
		insertFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			inserted = true
			return nil
		},
	}
	cache := newMockIdempotencyCache()
	useCase := newTransferUseCase(&mockWalletRepo{}, logRepo, &mockLedgerRepo{}, &mockEventPublisher{}, cache)

	result, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   fromID.String(),
		ToWalletID:     toID.String(),
		Amount:         "250.00",
		IdempotencyKey: key,
	})

	AssertNoError(t, err, "Execute")
	if !result.Success || !result.IsIdempotent {
		t.Errorf("Expected Success=true IsIdempotent=true, got %+v", result)
	}
	// P-инвариант replay: отдаются исходные поля записи
	if result.Transaction.ID != stored.ID().String() {
		t.Errorf("Expected original log id %s, got %s", stored.ID(), result.Transaction.ID)
	}
	if !result.Transaction.CreatedAt.Equal(stored.CreatedAt()) {
		t.Error("Replay must return the original created_at")
	}
	if inserted {
		t.Error("Replay must not insert a new log")
	}
	if _, ok := cache.Get(ctx, key); !ok {
		t.Error("Terminal replay should populate the cache")
	}
}

// TestExecuteTransferUseCase_ReplayFailed тестирует replay неуспешного
// перевода: Success=false и исходное сообщение
func TestExecuteTransferUseCase_ReplayFailed(t *testing.T) {
	ctx := context.Background()
	key := uuid.New().String()
	stored := newStoredLog(key, uuid.New(), uuid.New(), "50.00", entities.TransactionStatusFailed, "insufficient funds: available 10.00, required 50.00")

	logRepo := &mockTransactionLogRepo{
		findByIdempotencyKeyFunc: func(ctx context.Context, k string) (*entities.TransactionLog, error) {
			return stored, nil
		},
	}
	useCase := newTransferUseCase(&mockWalletRepo{}, logRepo, &mockLedgerRepo{}, &mockEventPublisher{}, nil)

	result, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   stored.FromWalletID().String(),
		ToWalletID:     stored.ToWalletID().String(),
		Amount:         "50.00",
		IdempotencyKey: key,
	})

	AssertNoError(t, err, "Execute")
	if result.Success || !result.IsIdempotent {
		t.Errorf("Expected Success=false IsIdempotent=true, got %+v", result)
	}
	if result.Message != stored.ErrorMessage() {
		t.Errorf("Expected original failure message, got %q", result.Message)
	}
}

// TestExecuteTransferUseCase_ReplayPending тестирует replay PENDING-сироты:
// запись не трогается и не кэшируется
func TestExecuteTransferUseCase_ReplayPending(t *testing.T) {
	ctx := context.Background()
	key := uuid.New().String()
	stored := newStoredLog(key, uuid.New(), uuid.New(), "75.00", entities.TransactionStatusPending, "")

	markCalled := false
	logRepo := &mockTransactionLogRepo{
		findByIdempotencyKeyFunc: func(ctx context.Context, k string) (*entities.TransactionLog, error) {
			return stored, nil
		},
		markCompletedFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			markCalled = true
			return nil
		},
		markFailedFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			markCalled = true
			return nil
		},
	}
	cache := newMockIdempotencyCache()
	useCase := newTransferUseCase(&mockWalletRepo{}, logRepo, &mockLedgerRepo{}, &mockEventPublisher{}, cache)

	result, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   stored.FromWalletID().String(),
		ToWalletID:     stored.ToWalletID().String(),
		Amount:         "75.00",
		IdempotencyKey: key,
	})

	AssertNoError(t, err, "Execute")
	if result.Success || !result.IsIdempotent {
		t.Errorf("Expected Success=false IsIdempotent=true, got %+v", result)
	}
	if result.Message != "previously pending" {
		t.Errorf("Expected message 'previously pending', got %q", result.Message)
	}
	if markCalled {
		t.Error("A pending orphan must not be transitioned outside its original transaction")
	}
	if cache.setCalls != 0 {
		t.Error("PENDING must never be cached")
	}
}

// TestExecuteTransferUseCase_DuplicateKeyRace тестирует гонку двух запросов
// за один ключ: проигравший реплеит запись победителя
func TestExecuteTransferUseCase_DuplicateKeyRace(t *testing.T) {
	ctx := context.Background()
	fromID := uuid.New()
	toID := uuid.New()
	key := uuid.New().String()
	winner := newStoredLog(key, fromID, toID, "250.00", entities.TransactionStatusCompleted, "")

	lookups := 0
	logRepo := &mockTransactionLogRepo{
		findByIdempotencyKeyFunc: func(ctx context.Context, k string) (*entities.TransactionLog, error) {
			lookups++
			if lookups == 1 {
				// Fast path: записи ещё нет
				return nil, domainErrors.ErrTransactionNotFound
			}
			// После duplicate key запись победителя уже видна
			return winner, nil
		},
		insertFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			return fmt.Errorf("insert transaction log: %w", domainErrors.ErrDuplicateIdempotencyKey)
		},
	}
	useCase := newTransferUseCase(&mockWalletRepo{}, logRepo, &mockLedgerRepo{}, &mockEventPublisher{}, nil)

	result, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   fromID.String(),
		ToWalletID:     toID.String(),
		Amount:         "250.00",
		IdempotencyKey: key,
	})

	AssertNoError(t, err, "Execute")
	if !result.IsIdempotent || !result.Success {
		t.Errorf("Expected idempotent replay of the winner, got %+v", result)
	}
	if result.Transaction.ID != winner.ID().String() {
		t.Error("Expected the winner's log row in the replay")
	}
}

// TestExecuteTransferUseCase_DuplicateKeyWithoutRow тестирует сломанный
// инвариант: duplicate key, но записи нет
func TestExecuteTransferUseCase_DuplicateKeyWithoutRow(t *testing.T) {
	ctx := context.Background()
	logRepo := &mockTransactionLogRepo{
		insertFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			return domainErrors.ErrDuplicateIdempotencyKey
		},
	}
	useCase := newTransferUseCase(&mockWalletRepo{}, logRepo, &mockLedgerRepo{}, &mockEventPublisher{}, nil)

	_, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   uuid.New().String(),
		ToWalletID:     uuid.New().String(),
		Amount:         "10.00",
		IdempotencyKey: uuid.New().String(),
	})

	if !errors.Is(err, domainErrors.ErrInternalInconsistency) {
		t.Fatalf("Expected ErrInternalInconsistency, got: %v", err)
	}
}

// TestExecuteTransferUseCase_SerializationRetry тестирует повтор после
// аборта сериализации: третья попытка проходит
func TestExecuteTransferUseCase_SerializationRetry(t *testing.T) {
	ctx := context.Background()
	fromID := uuid.New()
	toID := uuid.New()

	attempts := 0
	factory := &mockUnitOfWorkFactory{
		newSerializableFunc: func() ports.UnitOfWork {
			return &mockUnitOfWork{
				executeFunc: func(ctx context.Context, fn func(context.Context) error) error {
					attempts++
					if attempts <= 2 {
						return fmt.Errorf("commit aborted: %w", domainErrors.ErrSerializationFailure)
					}
					return fn(ctx)
				},
			}
		},
	}

	walletRepo := &mockWalletRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
			if id == fromID {
				return newTestWallet(fromID, "1000.00"), nil
			}
			return newTestWallet(toID, "0.00"), nil
		},
	}
	useCase := NewExecuteTransferUseCase(walletRepo, &mockTransactionLogRepo{}, &mockLedgerRepo{}, &mockEventPublisher{}, nil, factory)

	result, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   fromID.String(),
		ToWalletID:     toID.String(),
		Amount:         "100.00",
		IdempotencyKey: uuid.New().String(),
	})

	AssertNoError(t, err, "Execute")
	if !result.Success {
		t.Error("Expected success after retries")
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

// TestExecuteTransferUseCase_SerializationRetriesExhausted тестирует
// исчерпание повторов
func TestExecuteTransferUseCase_SerializationRetriesExhausted(t *testing.T) {
	ctx := context.Background()

	attempts := 0
	factory := &mockUnitOfWorkFactory{
		newSerializableFunc: func() ports.UnitOfWork {
			return &mockUnitOfWork{
				executeFunc: func(ctx context.Context, fn func(context.Context) error) error {
					attempts++
					return fmt.Errorf("commit aborted: %w", domainErrors.ErrSerializationFailure)
				},
			}
		},
	}
	useCase := NewExecuteTransferUseCase(&mockWalletRepo{}, &mockTransactionLogRepo{}, &mockLedgerRepo{}, &mockEventPublisher{}, nil, factory)

	_, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   uuid.New().String(),
		ToWalletID:     uuid.New().String(),
		Amount:         "10.00",
		IdempotencyKey: uuid.New().String(),
	})

	if !domainErrors.IsSerializationFailure(err) {
		t.Fatalf("Expected serialization failure, got: %v", err)
	}
	AssertErrorContains(t, err, "serialization retries")
	// Первая попытка + maxSerializationRetries повторов
	if attempts != maxSerializationRetries+1 {
		t.Errorf("Expected %d attempts, got %d", maxSerializationRetries+1, attempts)
	}
}

// TestExecuteTransferUseCase_CacheFastPath тестирует replay из кэша
// без запроса по ключу
func TestExecuteTransferUseCase_CacheFastPath(t *testing.T) {
	ctx := context.Background()
	key := uuid.New().String()
	stored := newStoredLog(key, uuid.New(), uuid.New(), "99.00", entities.TransactionStatusCompleted, "")

	keyLookups := 0
	logRepo := &mockTransactionLogRepo{
		findByIDFunc: func(ctx context.Context, id uuid.UUID) (*entities.TransactionLog, error) {
			if id == stored.ID() {
				return stored, nil
			}
			return nil, domainErrors.ErrTransactionNotFound
		},
		findByIdempotencyKeyFunc: func(ctx context.Context, k string) (*entities.TransactionLog, error) {
			keyLookups++
			return stored, nil
		},
	}
	cache := newMockIdempotencyCache()
	cache.Set(ctx, key, stored.ID(), time.Hour)

	useCase := newTransferUseCase(&mockWalletRepo{}, logRepo, &mockLedgerRepo{}, &mockEventPublisher{}, cache)

	result, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   stored.FromWalletID().String(),
		ToWalletID:     stored.ToWalletID().String(),
		Amount:         "99.00",
		IdempotencyKey: key,
	})

	AssertNoError(t, err, "Execute")
	if !result.IsIdempotent {
		t.Error("Expected idempotent replay")
	}
	if keyLookups != 0 {
		t.Errorf("Cache hit should skip the key lookup, got %d lookups", keyLookups)
	}
}

// TestExecuteTransferUseCase_StaleCacheFallsBackToDatabase тестирует
// расхождение кэша с БД: истина в БД
func TestExecuteTransferUseCase_StaleCacheFallsBackToDatabase(t *testing.T) {
	ctx := context.Background()
	key := uuid.New().String()
	stored := newStoredLog(key, uuid.New(), uuid.New(), "40.00", entities.TransactionStatusCompleted, "")

	logRepo := &mockTransactionLogRepo{
		// FindByID по устаревшему ID из кэша промахивается
		findByIdempotencyKeyFunc: func(ctx context.Context, k string) (*entities.TransactionLog, error) {
			return stored, nil
		},
	}
	cache := newMockIdempotencyCache()
	cache.Set(ctx, key, uuid.New(), time.Hour) // мусорный ID

	useCase := newTransferUseCase(&mockWalletRepo{}, logRepo, &mockLedgerRepo{}, &mockEventPublisher{}, cache)

	result, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   stored.FromWalletID().String(),
		ToWalletID:     stored.ToWalletID().String(),
		Amount:         "40.00",
		IdempotencyKey: key,
	})

	AssertNoError(t, err, "Execute")
	if !result.IsIdempotent || result.Transaction.ID != stored.ID().String() {
		t.Error("Expected the database row to win over the stale cache")
	}
}

// TestExecuteTransferUseCase_UnexpectedErrorBestEffortMarkFailed тестирует
// best-effort маркировку FAILED в отдельной транзакции
func TestExecuteTransferUseCase_UnexpectedErrorBestEffortMarkFailed(t *testing.T) {
	ctx := context.Background()
	fromID := uuid.New()
	toID := uuid.New()
	infraErr := errors.New("connection reset by peer")

	var insertedLog *entities.TransactionLog
	var markedFailed *entities.TransactionLog
	readCommittedUsed := false

	walletRepo := &mockWalletRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
			if id == fromID {
				return newTestWallet(fromID, "1000.00"), nil
			}
			return newTestWallet(toID, "0.00"), nil
		},
		updateBalanceFunc: func(ctx context.Context, w *entities.Wallet) error {
			return infraErr
		},
	}
	logRepo := &mockTransactionLogRepo{
		insertFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			insertedLog = log
			return nil
		},
		findByIDFunc: func(ctx context.Context, id uuid.UUID) (*entities.TransactionLog, error) {
			// Имитация записи, пережившей откат (например, вставленной
			// предыдущей упавшей попыткой)
			if insertedLog != nil && id == insertedLog.ID() {
				return entities.ReconstructTransactionLog(
					insertedLog.ID(), insertedLog.IdempotencyKey(),
					insertedLog.FromWalletID(), insertedLog.ToWalletID(),
					insertedLog.Amount(), entities.TransactionStatusPending, "",
					insertedLog.CreatedAt(), insertedLog.UpdatedAt(),
				), nil
			}
			return nil, domainErrors.ErrTransactionNotFound
		},
		markFailedFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			markedFailed = log
			return nil
		},
	}
	factory := &mockUnitOfWorkFactory{
		newReadCommittedFunc: func() ports.UnitOfWork {
			readCommittedUsed = true
			return &mockUnitOfWork{}
		},
	}
	useCase := NewExecuteTransferUseCase(walletRepo, logRepo, &mockLedgerRepo{}, &mockEventPublisher{}, nil, factory)

	_, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   fromID.String(),
		ToWalletID:     toID.String(),
		Amount:         "100.00",
		IdempotencyKey: uuid.New().String(),
	})

	// Исходная ошибка доходит до вызывающего
	if !errors.Is(err, infraErr) {
		t.Fatalf("Expected the original infrastructure error, got: %v", err)
	}
	if !readCommittedUsed {
		t.Error("Best-effort mark must run in a separate READ COMMITTED transaction")
	}
	AssertNotNil(t, markedFailed, "best-effort failed log")
	if markedFailed.ErrorMessage() == "" {
		t.Error("Best-effort FAILED must carry an error message")
	}
}

// TestExecuteTransferUseCase_BestEffortFailureIsSilent тестирует что ошибка
// best-effort маркировки не подменяет исходную
func TestExecuteTransferUseCase_BestEffortFailureIsSilent(t *testing.T) {
	ctx := context.Background()
	fromID := uuid.New()
	toID := uuid.New()
	infraErr := errors.New("disk full")

	walletRepo := &mockWalletRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
			if id == fromID {
				return newTestWallet(fromID, "1000.00"), nil
			}
			return newTestWallet(toID, "0.00"), nil
		},
		updateBalanceFunc: func(ctx context.Context, w *entities.Wallet) error {
			return infraErr
		},
	}
	var insertedLog *entities.TransactionLog
	logRepo := &mockTransactionLogRepo{
		insertFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			insertedLog = log
			return nil
		},
		findByIDFunc: func(ctx context.Context, id uuid.UUID) (*entities.TransactionLog, error) {
			if insertedLog != nil && id == insertedLog.ID() {
				return entities.ReconstructTransactionLog(
					insertedLog.ID(), insertedLog.IdempotencyKey(),
					insertedLog.FromWalletID(), insertedLog.ToWalletID(),
					insertedLog.Amount(), entities.TransactionStatusPending, "",
					insertedLog.CreatedAt(), insertedLog.UpdatedAt(),
				), nil
			}
			return nil, domainErrors.ErrTransactionNotFound
		},
		markFailedFunc: func(ctx context.Context, log *entities.TransactionLog) error {
			return errors.New("mark failed also broke")
		},
	}
	useCase := newTransferUseCase(walletRepo, logRepo, &mockLedgerRepo{}, &mockEventPublisher{}, nil)

	_, err := useCase.Execute(ctx, dtos.ExecuteTransferCommand{
		FromWalletID:   fromID.String(),
		ToWalletID:     toID.String(),
		Amount:         "100.00",
		IdempotencyKey: uuid.New().String(),
	})

	if !errors.Is(err, infraErr) {
		t.Fatalf("Expected the original error to survive, got: %v", err)
	}
}
