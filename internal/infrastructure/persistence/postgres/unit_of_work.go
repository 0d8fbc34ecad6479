// Package postgres - UnitOfWork implementation для PostgreSQL.
//
// Unit of Work Pattern:
// - Управляет границами транзакций
// - Обеспечивает атомарность операций
// - Автоматический ROLLBACK при ошибках
// - Automatic COMMIT при успехе
//
// Движок переводов запускает конечный автомат в SERIALIZABLE
// транзакции; конфликты сериализации (40001/40P01) транслируются в
// errors.ErrSerializationFailure, чтобы use case мог ограниченно
// повторить всю транзакцию.
//
// Usage:
//
//	uow := factory.NewSerializable()
//	err := uow.Execute(ctx, func(txCtx context.Context) error {
//	    wallet, _ := walletRepo.FindByIDForUpdate(txCtx, walletID)
//	    if err := wallet.Debit(amount); err != nil {
//	        return err // ROLLBACK
//	    }
//	    return walletRepo.UpdateBalance(txCtx, wallet) // nil => COMMIT
//	})
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haleralex/ledgerhub/internal/application/ports"
	domainErrors "github.com/Haleralex/ledgerhub/internal/domain/errors"
)

// Compile-time check
var _ ports.UnitOfWork = (*UnitOfWork)(nil)
var _ ports.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)

// UnitOfWork реализует ports.UnitOfWork с PostgreSQL транзакциями.
//
// Thread-safe: использует connection pool.
// Transaction isolation: по умолчанию READ COMMITTED.
type UnitOfWork struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// NewUnitOfWork создаёт новый UnitOfWork с изоляцией по умолчанию.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return NewUnitOfWorkWithIsolation(pool, pgx.ReadCommitted)
}

// NewUnitOfWorkWithIsolation создаёт UnitOfWork с указанным уровнем изоляции.
//
// Уровни изоляции:
// - pgx.ReadCommitted: чтения и вспомогательные записи
// - pgx.Serializable: конечный автомат перевода и начисление процентов;
//   БД абортит одну из транзакций любого несериализуемого переплетения
func NewUnitOfWorkWithIsolation(pool *pgxpool.Pool, isolation pgx.TxIsoLevel) *UnitOfWork {
	return &UnitOfWork{
		pool: pool,
		opts: pgx.TxOptions{
			IsoLevel: isolation,
		},
	}
}

// Execute выполняет функцию внутри транзакции.
//
// Поведение:
// - Начинает транзакцию
// - Внедряет транзакцию в context
// - Выполняет fn с новым context
// - Если fn возвращает nil: COMMIT
// - Если fn возвращает error: ROLLBACK
// - Если panic: ROLLBACK + re-panic
//
// ВАЖНО: Все repositories внутри fn должны использовать переданный txCtx!
func (u *UnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	// Проверяем, есть ли уже транзакция в context (nested transaction)
	if hasTx(ctx) {
		// Уже внутри транзакции - просто выполняем функцию
		// (PostgreSQL не поддерживает true nested transactions, только savepoints)
		return fn(ctx)
	}

	tx, err := u.pool.BeginTx(ctx, u.opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Defer для гарантированного cleanup
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	txCtx := injectTx(ctx, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return mapTxError(err)
	}

	// Успех - коммитим. SERIALIZABLE может абортнуть именно здесь:
	// commit - это последняя точка, где БД проверяет сериализуемость.
	if err := tx.Commit(ctx); err != nil {
		return mapTxError(fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

// ExecuteWithResult выполняет функцию и возвращает результат.
//
// Аналогичен Execute, но позволяет вернуть значение из транзакции.
// Полезно когда нужно вернуть созданную entity.
func (u *UnitOfWork) ExecuteWithResult(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	var result interface{}

	err := u.Execute(ctx, func(txCtx context.Context) error {
		var fnErr error
		result, fnErr = fn(txCtx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// ExecuteWithRetry выполняет транзакцию с автоматическим retry при конфликтах.
//
// maxRetries: максимальное количество повторов (0 = без retry).
// Повторяются только serialization failures и connection errors;
// бизнес-ошибки возвращаются сразу.
func (u *UnitOfWork) ExecuteWithRetry(ctx context.Context, maxRetries int, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := u.Execute(ctx, fn)
		if err == nil {
			return nil
		}

		if !isRetryableError(err) && !domainErrors.IsSerializationFailure(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// mapTxError транслирует инфраструктурные коды ошибок в доменную
// таксономию. Serialization failure всплывает как ErrSerializationFailure,
// чтобы use case мог отличить "повтори транзакцию" от настоящего сбоя.
func mapTxError(err error) error {
	if isSerializationFailure(err) {
		return fmt.Errorf("%w: %v", domainErrors.ErrSerializationFailure, err)
	}
	return err
}

// UnitOfWorkFactory создаёт UnitOfWork с нужным уровнем изоляции.
type UnitOfWorkFactory struct {
	pool *pgxpool.Pool
}

// NewUnitOfWorkFactory создаёт фабрику UnitOfWork.
func NewUnitOfWorkFactory(pool *pgxpool.Pool) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{pool: pool}
}

// New создаёт новый UnitOfWork с настройками по умолчанию.
func (f *UnitOfWorkFactory) New() ports.UnitOfWork {
	return NewUnitOfWork(f.pool)
}

// NewSerializable создаёт UnitOfWork с SERIALIZABLE изоляцией.
// Используется движком переводов и начислением процентов.
func (f *UnitOfWorkFactory) NewSerializable() ports.UnitOfWork {
	return NewUnitOfWorkWithIsolation(f.pool, pgx.Serializable)
}

// NewReadCommitted создаёт UnitOfWork с READ COMMITTED изоляцией.
// Достаточно для чтений и best-effort вспомогательных записей.
func (f *UnitOfWorkFactory) NewReadCommitted() ports.UnitOfWork {
	return NewUnitOfWorkWithIsolation(f.pool, pgx.ReadCommitted)
}
