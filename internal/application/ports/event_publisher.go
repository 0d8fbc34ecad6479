// Package ports - EventPublisher для публикации domain events.
//
// SOLID Principles:
// - DIP: Application не знает о NATS деталях
// - OCP: Можно заменить брокер без изменения use cases
// - ISP: Простой интерфейс с одним методом
//
// Pattern: Publisher/Subscriber (Observer на уровне инфраструктуры)
package ports

import (
	"context"
	"time"

	"github.com/Haleralex/ledgerhub/internal/domain/events"
)

// EventPublisher определяет контракт для публикации domain events.
//
// Реализации:
// - NATS (production)
// - Database Outbox (внутри транзакций use cases)
// - In-memory (тесты)
type EventPublisher interface {
	// Publish публикует одно событие.
	//
	// Behaviour:
	// - At-least-once delivery (возможны дубликаты)
	// - Consumers должны быть идемпотентными!
	//
	// Example:
	//   event := events.NewTransferCompleted(txID, fromID, toID, "25.00", key)
	//   err := publisher.Publish(ctx, event)
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch публикует несколько событий за один вызов.
	//
	// Важно: если одно событие не удаётся опубликовать, вся batch
	// должна провалиться (атомарность на уровне batch).
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// OutboxRepository - интерфейс для Transactional Outbox Pattern.
//
// Transactional Outbox решает проблему:
// "Как гарантировать, что event опубликуется, если БД-транзакция успешна?"
//
// Решение:
// 1. В той же БД-транзакции сохраняем event в таблицу outbox
// 2. Отдельный процесс (relay) читает outbox и публикует в NATS
// 3. После успешной публикации помечает event как published
//
// Это гарантирует at-least-once delivery без потери событий!
type OutboxRepository interface {
	// Save сохраняет событие в outbox таблицу.
	// Должно выполняться в той же транзакции, что и бизнес-операция!
	Save(ctx context.Context, event events.DomainEvent) error

	// FindUnpublished возвращает события, которые ещё не опубликованы.
	// Используется relay'ем; строки блокируются через FOR UPDATE SKIP LOCKED,
	// чтобы несколько relay-процессов не публиковали одно событие.
	FindUnpublished(ctx context.Context, limit int) ([]events.DomainEvent, error)

	// MarkPublished помечает событие как опубликованное.
	// После этого relay не будет пытаться публиковать его снова.
	MarkPublished(ctx context.Context, eventID string) error

	// MarkFailed помечает событие как failed с причиной.
	MarkFailed(ctx context.Context, eventID string, reason string) error

	// CleanupPublished удаляет опубликованные события старше olderThan.
	// Возвращает число удалённых строк. Вызывается relay'ем по таймеру.
	CleanupPublished(ctx context.Context, olderThan time.Duration) (int64, error)
}
