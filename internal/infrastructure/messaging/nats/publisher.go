// Package nats реализует публикацию domain events в NATS.
//
// Publisher не вызывается из use cases напрямую: события пишутся в
// outbox в той же транзакции, что и бизнес-операция, а Relay доносит
// их до брокера. Доставка at-least-once; consumers обязаны быть
// идемпотентными.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/Haleralex/ledgerhub/internal/application/ports"
	"github.com/Haleralex/ledgerhub/internal/domain/events"
)

// subjectPrefix - префикс NATS subjects для всех событий системы.
// Полный subject: ledgerhub.events.<event_type>, например
// ledgerhub.events.transfer.completed.
const subjectPrefix = "ledgerhub.events."

// Compile-time check
var _ ports.EventPublisher = (*Publisher)(nil)

// Publisher публикует domain events в NATS.
type Publisher struct {
	conn *nats.Conn
	log  *slog.Logger
}

// NewPublisher создаёт новый Publisher поверх установленного соединения.
func NewPublisher(conn *nats.Conn, log *slog.Logger) *Publisher {
	return &Publisher{
		conn: conn,
		log:  log.With("component", "nats_publisher"),
	}
}

// Connect устанавливает соединение с NATS с разумными настройками
// реконнекта.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// Publish публикует одно событие.
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	payload, err := payloadFor(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event %s: %w", event.EventType(), err)
	}

	subject := SubjectFor(event.EventType())
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.log.DebugContext(ctx, "event published",
		"subject", subject,
		"event_id", event.EventID().String(),
	)

	return nil
}

// PublishBatch публикует несколько событий. Первая ошибка прерывает batch.
func (p *Publisher) PublishBatch(ctx context.Context, eventsList []events.DomainEvent) error {
	for _, event := range eventsList {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// SubjectFor возвращает NATS subject для типа события.
func SubjectFor(eventType string) string {
	return subjectPrefix + eventType
}

// payloadFor возвращает wire-представление события.
// События из outbox уже сериализованы - их payload уходит как есть,
// чтобы relay не пересобирал JSON и не терял поля.
func payloadFor(event events.DomainEvent) ([]byte, error) {
	if carrier, ok := event.(interface{ Payload() []byte }); ok {
		return carrier.Payload(), nil
	}
	return json.Marshal(event)
}
