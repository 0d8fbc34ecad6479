// Package ports - IdempotencyCache для быстрого replay-пути переводов.
//
// Кэш - производные данные, не источник истины. Истина всегда в журнале
// переводов (UNIQUE constraint). Промах или недоступность кэша меняют
// только латентность, не корректность.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdempotencyCache хранит соответствие "ключ идемпотентности -> ID записи
// журнала" для уже завершённых переводов.
//
// Сигнатуры без error: недоступный кэш эквивалентен промаху,
// реализация сама логирует сбои. Кэшируются только терминальные
// записи (COMPLETED/FAILED), PENDING никогда!
type IdempotencyCache interface {
	// Get возвращает закэшированный ID записи журнала.
	// Второй результат false при промахе (или сбое кэша).
	Get(ctx context.Context, idempotencyKey string) (uuid.UUID, bool)

	// Set кэширует соответствие с указанным TTL.
	Set(ctx context.Context, idempotencyKey string, transactionLogID uuid.UUID, ttl time.Duration)
}
