// Package ports определяет интерфейсы (порты) для внешних зависимостей.
// Эти интерфейсы реализуются в Infrastructure Layer.
//
// SOLID Principles:
// - DIP: Application зависит от абстракций, не от конкретных реализаций
// - ISP: Каждый интерфейс фокусируется на одной сущности
// - SRP: Repository отвечает только за persistence
//
// Pattern: Repository Pattern + Ports & Adapters (Hexagonal Architecture)
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Haleralex/ledgerhub/internal/domain/entities"
)

// WalletRepository определяет контракт для хранения кошельков.
//
// Важно: переводы изменяют баланс только внутри транзакции,
// удерживая блокировку строки (FindByIDForUpdate).
type WalletRepository interface {
	// Save сохраняет новый кошелёк.
	Save(ctx context.Context, wallet *entities.Wallet) error

	// FindByID загружает кошелёк по ID.
	// Возвращает ErrWalletNotFound если не найден.
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)

	// FindByIDForUpdate загружает кошелёк с блокировкой строки (SELECT ... FOR UPDATE).
	// Должен вызываться только внутри транзакции!
	// Блокировка удерживается до конца транзакции.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)

	// UpdateBalance записывает новый баланс кошелька.
	// Вызывается после Debit/Credit на entity, внутри той же транзакции,
	// что и FindByIDForUpdate.
	UpdateBalance(ctx context.Context, wallet *entities.Wallet) error
}

// TransactionLogRepository определяет контракт для журнала переводов.
//
// Журнал - основа идемпотентности: UNIQUE constraint на idempotency_key
// гарантирует, что для одного ключа существует ровно одна запись.
type TransactionLogRepository interface {
	// Insert вставляет новую запись журнала (всегда в статусе PENDING).
	// При нарушении уникальности ключа возвращает ErrDuplicateIdempotencyKey.
	// Критично: это единственный арбитр "кто первый" при гонке двух запросов!
	Insert(ctx context.Context, log *entities.TransactionLog) error

	// FindByID загружает запись по ID.
	// Возвращает ErrTransactionNotFound если не найдена.
	FindByID(ctx context.Context, id uuid.UUID) (*entities.TransactionLog, error)

	// FindByIdempotencyKey находит запись по ключу идемпотентности.
	// Используется fast-path'ом replay и после ErrDuplicateIdempotencyKey.
	FindByIdempotencyKey(ctx context.Context, key string) (*entities.TransactionLog, error)

	// MarkCompleted переводит запись в COMPLETED.
	// Entity уже должна быть в COMPLETED (MarkCompleted на entity).
	MarkCompleted(ctx context.Context, log *entities.TransactionLog) error

	// MarkFailed переводит запись в FAILED с сообщением об ошибке.
	MarkFailed(ctx context.Context, log *entities.TransactionLog) error

	// ListByWallet возвращает записи, где кошелёк был отправителем или
	// получателем, новые первыми.
	ListByWallet(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.TransactionLog, error)
}

// LedgerRepository определяет контракт для ledger (двойная запись).
//
// Ledger append-only: записи никогда не обновляются и не удаляются.
type LedgerRepository interface {
	// InsertPair вставляет обе стороны перевода (DEBIT + CREDIT) за один вызов.
	// Должен выполняться в той же транзакции, что и обновление балансов!
	InsertPair(ctx context.Context, debit, credit *entities.LedgerEntry) error

	// ListByWallet возвращает записи ledger кошелька, новые первыми.
	ListByWallet(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.LedgerEntry, error)
}

// AccountRepository определяет контракт для процентных счетов.
type AccountRepository interface {
	// Save сохраняет новый счёт.
	Save(ctx context.Context, account *entities.Account) error

	// FindByID загружает счёт по ID.
	// Возвращает ErrAccountNotFound если не найден.
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Account, error)

	// FindByIDForUpdate загружает счёт с блокировкой строки.
	// Начисление процентов читает principal под этой блокировкой.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Account, error)

	// UpdateBalance записывает новый баланс счёта.
	UpdateBalance(ctx context.Context, account *entities.Account) error
}

// InterestLogRepository определяет контракт для журнала начислений процентов.
//
// UNIQUE constraint на (account_id, calculation_date) - примитив
// идемпотентности: один счёт получает проценты за день ровно один раз.
type InterestLogRepository interface {
	// Insert вставляет запись о начислении.
	// При нарушении уникальности (account_id, calculation_date)
	// возвращает ErrDuplicateInterestEntry.
	Insert(ctx context.Context, log *entities.InterestLog) error

	// FindByAccountAndDate находит запись за конкретный день (UTC дата).
	// Используется replay-путём после ErrDuplicateInterestEntry.
	FindByAccountAndDate(ctx context.Context, accountID uuid.UUID, date time.Time) (*entities.InterestLog, error)

	// ListByAccount возвращает записи счёта, новые первыми.
	ListByAccount(ctx context.Context, accountID uuid.UUID, offset, limit int) ([]*entities.InterestLog, error)
}
