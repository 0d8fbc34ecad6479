// Package postgres - вспомогательные функции для работы с PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// txKey - ключ для хранения транзакции в context.
type txKey struct{}

// injectTx добавляет транзакцию в context.
// Используется UnitOfWork для передачи транзакции в repositories.
func injectTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// extractTx извлекает транзакцию из context.
// Возвращает nil если транзакции нет.
func extractTx(ctx context.Context) pgx.Tx {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return nil
	}
	return tx
}

// hasTx проверяет наличие транзакции в context.
func hasTx(ctx context.Context) bool {
	return extractTx(ctx) != nil
}

// PostgreSQL error codes (из спецификации)
const (
	// Constraint violations
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"

	// Serialization failures: SERIALIZABLE abort и deadlock.
	// Оба откатывают транзакцию целиком и оба безопасно повторять.
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Имена UNIQUE constraints, которые движки используют как примитивы
// идемпотентности. Должны совпадать с migrations!
const (
	constraintIdempotencyKey = "transaction_logs_idempotency_key_unique"
	constraintInterestEntry  = "interest_logs_account_date_unique"
)

// asPgError достаёт *pgconn.PgError из цепочки ошибок.
// Repositories оборачивают ошибки драйвера через %w, поэтому
// прямое приведение типа здесь не работает - только errors.As.
func asPgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

// isPgError проверяет, является ли ошибка PostgreSQL ошибкой с определённым кодом.
func isPgError(err error, code string) bool {
	pgErr := asPgError(err)
	return pgErr != nil && pgErr.Code == code
}

// isUniqueViolation проверяет, является ли ошибка нарушением UNIQUE constraint.
// constraintName - опциональное имя constraint для проверки.
func isUniqueViolation(err error, constraintName string) bool {
	pgErr := asPgError(err)
	if pgErr == nil {
		return false
	}

	if pgErr.Code != pgUniqueViolation {
		return false
	}

	// Если указано имя constraint, проверяем его
	if constraintName != "" {
		return strings.Contains(pgErr.ConstraintName, constraintName)
	}

	return true
}

// isForeignKeyViolation проверяет нарушение foreign key constraint.
func isForeignKeyViolation(err error) bool {
	return isPgError(err, pgForeignKeyViolation)
}

// isCheckViolation проверяет нарушение CHECK constraint.
// Балансы защищены CHECK (balance >= 0) как последней линией обороны:
// доменный слой не должен допускать таких записей вообще.
func isCheckViolation(err error) bool {
	return isPgError(err, pgCheckViolation)
}

// isSerializationFailure проверяет ошибку сериализации (для retry).
func isSerializationFailure(err error) bool {
	return isPgError(err, pgSerializationFailure) || isPgError(err, pgDeadlockDetected)
}

// isRetryableError проверяет, можно ли повторить операцию.
// Retryable: deadlock, serialization failure, connection errors.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if isSerializationFailure(err) {
		return true
	}

	// Connection errors часто можно retry
	if pgErr := asPgError(err); pgErr != nil {
		// Class 08 - Connection Exception
		return strings.HasPrefix(pgErr.Code, "08")
	}

	return false
}
