// Package events defines domain events that represent significant business occurrences.
// Events are immutable facts about what happened in the past.
//
// Events are raised by use cases when state changes commit, stored in the
// outbox within the same transaction, and relayed to the message broker by a
// separate poller. Payload fields are plain strings and UUIDs so an event
// serializes to JSON without help from the value objects.
package events

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the base interface for all domain events.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID // ID of the entity that raised this event
}

// BaseEvent provides common fields for all events.
// Embedded in specific event types to avoid duplication.
type BaseEvent struct {
	eventID     uuid.UUID
	eventType   string
	occurredAt  time.Time
	aggregateID uuid.UUID
}

func newBaseEvent(eventType string, aggregateID uuid.UUID) BaseEvent {
	return BaseEvent{
		eventID:     uuid.New(),
		eventType:   eventType,
		occurredAt:  time.Now().UTC(),
		aggregateID: aggregateID,
	}
}

func (e BaseEvent) EventID() uuid.UUID {
	return e.eventID
}

func (e BaseEvent) EventType() string {
	return e.eventType
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.occurredAt
}

func (e BaseEvent) AggregateID() uuid.UUID {
	return e.aggregateID
}

// Event Types (constants for type checking)
const (
	EventTypeWalletCreated     = "wallet.created"
	EventTypeTransferCompleted = "transfer.completed"
	EventTypeTransferFailed    = "transfer.failed"
	EventTypeAccountCreated    = "account.created"
	EventTypeInterestApplied   = "interest.applied"
)

// ===== Wallet Events =====

// WalletCreated is raised when a new wallet is created.
type WalletCreated struct {
	BaseEvent
	WalletID       uuid.UUID
	InitialBalance string
}

func NewWalletCreated(walletID uuid.UUID, initialBalance string) *WalletCreated {
	return &WalletCreated{
		BaseEvent:      newBaseEvent(EventTypeWalletCreated, walletID),
		WalletID:       walletID,
		InitialBalance: initialBalance,
	}
}

// ===== Transfer Events =====

// TransferCompleted is raised when a transfer commits with both wallets
// updated and the ledger pair written. Consumers might send notifications,
// update read models, or feed analytics.
type TransferCompleted struct {
	BaseEvent
	TransactionLogID uuid.UUID
	FromWalletID     uuid.UUID
	ToWalletID       uuid.UUID
	Amount           string
	IdempotencyKey   string
}

func NewTransferCompleted(
	transactionLogID, fromWalletID, toWalletID uuid.UUID,
	amount string,
	idempotencyKey string,
) *TransferCompleted {
	return &TransferCompleted{
		BaseEvent:        newBaseEvent(EventTypeTransferCompleted, transactionLogID),
		TransactionLogID: transactionLogID,
		FromWalletID:     fromWalletID,
		ToWalletID:       toWalletID,
		Amount:           amount,
		IdempotencyKey:   idempotencyKey,
	}
}

// TransferFailed is raised when a transfer commits in FAILED status.
// The reason matches the error_message recorded on the transaction log.
type TransferFailed struct {
	BaseEvent
	TransactionLogID uuid.UUID
	FromWalletID     uuid.UUID
	ToWalletID       uuid.UUID
	Amount           string
	IdempotencyKey   string
	Reason           string
}

func NewTransferFailed(
	transactionLogID, fromWalletID, toWalletID uuid.UUID,
	amount string,
	idempotencyKey string,
	reason string,
) *TransferFailed {
	return &TransferFailed{
		BaseEvent:        newBaseEvent(EventTypeTransferFailed, transactionLogID),
		TransactionLogID: transactionLogID,
		FromWalletID:     fromWalletID,
		ToWalletID:       toWalletID,
		Amount:           amount,
		IdempotencyKey:   idempotencyKey,
		Reason:           reason,
	}
}

// ===== Account Events =====

// AccountCreated is raised when a new interest account is created.
type AccountCreated struct {
	BaseEvent
	AccountID      uuid.UUID
	InitialBalance string
}

func NewAccountCreated(accountID uuid.UUID, initialBalance string) *AccountCreated {
	return &AccountCreated{
		BaseEvent:      newBaseEvent(EventTypeAccountCreated, accountID),
		AccountID:      accountID,
		InitialBalance: initialBalance,
	}
}

// InterestApplied is raised when a day's interest is calculated and the
// account balance moves. Replayed calculations do not raise it again.
type InterestApplied struct {
	BaseEvent
	AccountID       uuid.UUID
	CalculationDate string // ISO date, e.g. "2023-06-15"
	InterestAmount  string
	NewBalance      string
}

func NewInterestApplied(
	accountID uuid.UUID,
	calculationDate time.Time,
	interestAmount, newBalance string,
) *InterestApplied {
	return &InterestApplied{
		BaseEvent:       newBaseEvent(EventTypeInterestApplied, accountID),
		AccountID:       accountID,
		CalculationDate: calculationDate.UTC().Format("2006-01-02"),
		InterestAmount:  interestAmount,
		NewBalance:      newBalance,
	}
}

// EventStore is a simple in-memory accumulator for events raised during one
// use case execution. The use case drains it into the outbox before commit.
type EventStore struct {
	events []DomainEvent
}

// NewEventStore creates a new event store.
func NewEventStore() *EventStore {
	return &EventStore{
		events: make([]DomainEvent, 0),
	}
}

// Add appends an event to the store.
func (s *EventStore) Add(event DomainEvent) {
	s.events = append(s.events, event)
}

// GetAll returns all collected events.
func (s *EventStore) GetAll() []DomainEvent {
	return s.events
}

// Clear removes all events from the store.
func (s *EventStore) Clear() {
	s.events = make([]DomainEvent, 0)
}

// Count returns the number of events in the store.
func (s *EventStore) Count() int {
	return len(s.events)
}
