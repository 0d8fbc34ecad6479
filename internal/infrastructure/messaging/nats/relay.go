// Package nats - Relay, вторая половина Transactional Outbox Pattern.
package nats

import (
	"context"
	"log/slog"
	"time"

	"github.com/Haleralex/ledgerhub/internal/application/ports"
)

// Relay периодически выгребает неопубликованные события из outbox
// и публикует их в NATS.
//
// Каждый batch обрабатывается в транзакции: FindUnpublished блокирует
// строки через FOR UPDATE SKIP LOCKED, поэтому несколько экземпляров
// relay безопасно работают параллельно. Событие, которое не удалось
// опубликовать, помечается FAILED и не блокирует остальные.
type Relay struct {
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	uowFactory ports.UnitOfWorkFactory
	log        *slog.Logger

	interval     time.Duration
	batchSize    int
	cleanupAfter time.Duration
}

// RelayConfig - настройки relay.
type RelayConfig struct {
	Interval     time.Duration // Период опроса outbox
	BatchSize    int           // Максимум событий за проход
	CleanupAfter time.Duration // Возраст опубликованных событий для удаления
}

// DefaultRelayConfig возвращает настройки по умолчанию.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		Interval:     time.Second,
		BatchSize:    100,
		CleanupAfter: 24 * time.Hour,
	}
}

// NewRelay создаёт новый Relay.
func NewRelay(
	outbox ports.OutboxRepository,
	publisher ports.EventPublisher,
	uowFactory ports.UnitOfWorkFactory,
	cfg RelayConfig,
	log *slog.Logger,
) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRelayConfig().Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultRelayConfig().BatchSize
	}

	return &Relay{
		outbox:       outbox,
		publisher:    publisher,
		uowFactory:   uowFactory,
		log:          log.With("component", "outbox_relay"),
		interval:     cfg.Interval,
		batchSize:    cfg.BatchSize,
		cleanupAfter: cfg.CleanupAfter,
	}
}

// Run запускает цикл relay до отмены context.
// Блокирует вызывающую goroutine; запускать через go relay.Run(ctx).
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Cleanup выполняется на порядки реже публикации
	cleanupTicker := time.NewTicker(time.Hour)
	defer cleanupTicker.Stop()

	r.log.InfoContext(ctx, "outbox relay started",
		"interval", r.interval.String(),
		"batch_size", r.batchSize,
	)

	for {
		select {
		case <-ctx.Done():
			r.log.InfoContext(ctx, "outbox relay stopped")
			return
		case <-ticker.C:
			if err := r.RelayOnce(ctx); err != nil {
				r.log.ErrorContext(ctx, "outbox relay pass failed", "error", err)
			}
		case <-cleanupTicker.C:
			r.cleanup(ctx)
		}
	}
}

// RelayOnce выполняет один проход: читает batch, публикует, помечает.
// Выделен отдельно для вызова из тестов и ручных прогонов.
func (r *Relay) RelayOnce(ctx context.Context) error {
	uow := r.uowFactory.NewReadCommitted()

	return uow.Execute(ctx, func(txCtx context.Context) error {
		pending, err := r.outbox.FindUnpublished(txCtx, r.batchSize)
		if err != nil {
			return err
		}

		for _, event := range pending {
			eventID := event.EventID().String()

			if err := r.publisher.Publish(txCtx, event); err != nil {
				r.log.WarnContext(txCtx, "failed to publish event",
					"event_id", eventID,
					"event_type", event.EventType(),
					"error", err,
				)
				if markErr := r.outbox.MarkFailed(txCtx, eventID, err.Error()); markErr != nil {
					return markErr
				}
				continue
			}

			if err := r.outbox.MarkPublished(txCtx, eventID); err != nil {
				return err
			}
		}

		return nil
	})
}

// cleanup удаляет давно опубликованные события.
func (r *Relay) cleanup(ctx context.Context) {
	if r.cleanupAfter <= 0 {
		return
	}

	deleted, err := r.outbox.CleanupPublished(ctx, r.cleanupAfter)
	if err != nil {
		r.log.WarnContext(ctx, "outbox cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		r.log.InfoContext(ctx, "outbox cleanup completed", "deleted", deleted)
	}
}
