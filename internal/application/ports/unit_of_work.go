// Package ports - UnitOfWork паттерн для управления транзакциями.
//
// SOLID Principles:
// - SRP: UnitOfWork отвечает только за границы транзакций
// - DIP: Application не знает о деталях БД транзакций
//
// Pattern: Unit of Work
// - Обеспечивает атомарность операций
// - Один UnitOfWork = одна БД-транзакция
// - Автоматический rollback при ошибке
package ports

import "context"

// UnitOfWork определяет контракт для управления транзакциями.
//
// Паттерн Unit of Work решает проблему:
// "Как гарантировать, что несколько операций выполнятся атомарно?"
//
// Пример использования:
//
//	err := uow.Execute(ctx, func(txCtx context.Context) error {
//	    wallet, err := walletRepo.FindByIDForUpdate(txCtx, walletID)
//	    if err != nil {
//	        return err // автоматический rollback
//	    }
//	    if err := wallet.Debit(amount); err != nil {
//	        return err
//	    }
//	    return walletRepo.UpdateBalance(txCtx, wallet)
//	})
//	// Если fn вернула error - ROLLBACK, иначе COMMIT
type UnitOfWork interface {
	// Execute выполняет функцию внутри транзакции.
	//
	// Поведение:
	// - Начинает транзакцию
	// - Выполняет fn
	// - Если fn возвращает error: ROLLBACK
	// - Если fn возвращает nil: COMMIT
	//
	// Context:
	// Переданный в fn context содержит транзакцию.
	// Все операции внутри fn должны использовать этот context!
	Execute(ctx context.Context, fn func(context.Context) error) error

	// ExecuteWithResult аналогичен Execute, но возвращает результат.
	// Полезно когда нужно вернуть созданную entity.
	ExecuteWithResult(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error)
}

// UnitOfWorkFactory создаёт UnitOfWork с нужным уровнем изоляции.
//
// Движку переводов и начислению процентов нужен SERIALIZABLE:
// при 40001/40P01 транзакция откатывается целиком и может быть повторена.
// Для чтений и вспомогательных записей достаточно READ COMMITTED.
type UnitOfWorkFactory interface {
	// New создаёт UnitOfWork с уровнем изоляции БД по умолчанию.
	New() UnitOfWork

	// NewSerializable создаёт UnitOfWork с уровнем SERIALIZABLE.
	// Конфликты сериализации всплывают как ErrSerializationFailure.
	NewSerializable() UnitOfWork

	// NewReadCommitted создаёт UnitOfWork с уровнем READ COMMITTED.
	NewReadCommitted() UnitOfWork
}
