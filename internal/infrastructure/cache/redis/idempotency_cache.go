// Package redis реализует IdempotencyCache поверх Redis.
//
// Кэш ускоряет replay-путь переводов: для уже завершённого ключа
// идемпотентности ответ собирается без похода в таблицу журнала.
// Redis - производные данные: его потеря или недоступность меняют
// только латентность, истина всегда в PostgreSQL.
package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Haleralex/ledgerhub/internal/application/ports"
)

// DefaultTTL - время жизни закэшированного соответствия.
// Сутки покрывают типичное окно ретраев клиентов; после истечения
// replay просто идёт через журнал.
const DefaultTTL = 24 * time.Hour

// keyPrefix - префикс ключей в Redis.
const keyPrefix = "idempotency:"

// Compile-time check
var _ ports.IdempotencyCache = (*IdempotencyCache)(nil)

// IdempotencyCache хранит "ключ идемпотентности -> ID записи журнала"
// для терминальных переводов.
//
// Все сбои Redis проглатываются и логируются: недоступный кэш
// эквивалентен промаху, use case при этом не знает и не должен знать,
// что кэш болен.
type IdempotencyCache struct {
	client *redis.Client
	log    *slog.Logger
}

// NewIdempotencyCache создаёт новый IdempotencyCache.
func NewIdempotencyCache(client *redis.Client, log *slog.Logger) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		log:    log.With("component", "idempotency_cache"),
	}
}

// Get возвращает закэшированный ID записи журнала.
// Промах, сбой Redis и мусор в значении неразличимы для вызывающего -
// все три означают "иди в журнал".
func (c *IdempotencyCache) Get(ctx context.Context, idempotencyKey string) (uuid.UUID, bool) {
	value, err := c.client.Get(ctx, keyPrefix+idempotencyKey).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.WarnContext(ctx, "idempotency cache get failed",
				"error", err)
		}
		return uuid.Nil, false
	}

	id, err := uuid.Parse(value)
	if err != nil {
		c.log.WarnContext(ctx, "idempotency cache holds invalid value",
			"value", value)
		return uuid.Nil, false
	}

	return id, true
}

// Set кэширует соответствие с указанным TTL.
// Кэшируются только терминальные записи - это ответственность вызывающего.
func (c *IdempotencyCache) Set(ctx context.Context, idempotencyKey string, transactionLogID uuid.UUID, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if err := c.client.Set(ctx, keyPrefix+idempotencyKey, transactionLogID.String(), ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "idempotency cache set failed",
			"error", err)
	}
}
