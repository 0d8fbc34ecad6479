// Package entities - TransactionLog records one logical transfer command and
// drives the idempotency protocol: its unique idempotency key is the single
// source of truth for "has this command already run".
package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/Haleralex/ledgerhub/internal/domain/valueobjects"
)

// MaxIdempotencyKeyLength bounds caller-supplied keys (matches the column width).
const MaxIdempotencyKeyLength = 255

// TransactionStatus represents the lifecycle state of a transaction log.
type TransactionStatus string

const (
	// TransactionStatusPending - inserted before any balance mutation.
	// A PENDING row that outlives its transaction marks an interrupted
	// transfer; it is never transitioned from outside that transaction.
	TransactionStatusPending TransactionStatus = "PENDING"
	// TransactionStatusCompleted - transfer committed, ledger pair written.
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	// TransactionStatusFailed - transfer rejected (missing wallet,
	// insufficient funds); the failure record itself is committed.
	TransactionStatusFailed TransactionStatus = "FAILED"
)

// IsValid checks if the status is one of the known states.
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for COMPLETED and FAILED.
// Terminal states never transition again.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// TransactionLog represents one transfer command between two wallets.
//
// State machine:
//
//	∅ ──insert──► PENDING ──► COMPLETED (terminal)
//	                   └────► FAILED    (terminal)
//
// Rows are never deleted; replays of the same idempotency key return the
// stored row as-is.
type TransactionLog struct {
	id             uuid.UUID
	idempotencyKey string
	fromWalletID   uuid.UUID
	toWalletID     uuid.UUID
	amount         valueobjects.Money
	status         TransactionStatus
	errorMessage   string

	createdAt time.Time
	updatedAt time.Time
}

// NewTransactionLog creates a PENDING transaction log, validating the
// transfer preconditions. These checks run before any I/O:
//
//   - idempotency key must be non-empty (and fit the column)
//   - amount must be positive
//   - a wallet cannot transfer to itself
func NewTransactionLog(
	idempotencyKey string,
	fromWalletID, toWalletID uuid.UUID,
	amount valueobjects.Money,
) (*TransactionLog, error) {
	if idempotencyKey == "" {
		return nil, errors.ErrMissingIdempotencyKey
	}
	if len(idempotencyKey) > MaxIdempotencyKeyLength {
		return nil, errors.ValidationError{
			Field:   "idempotency_key",
			Message: "idempotency key exceeds 255 characters",
		}
	}

	if !amount.IsPositive() {
		return nil, errors.ValidationError{
			Field:   "amount",
			Message: "transfer amount must be positive",
		}
	}

	if fromWalletID == toWalletID {
		return nil, errors.NewBusinessRuleViolation(
			"SELF_TRANSFER",
			"cannot transfer to the same wallet",
			map[string]interface{}{"wallet_id": fromWalletID.String()},
		)
	}

	now := time.Now().UTC()
	return &TransactionLog{
		id:             uuid.New(),
		idempotencyKey: idempotencyKey,
		fromWalletID:   fromWalletID,
		toWalletID:     toWalletID,
		amount:         amount,
		status:         TransactionStatusPending,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructTransactionLog reconstructs a TransactionLog from stored data.
func ReconstructTransactionLog(
	id uuid.UUID,
	idempotencyKey string,
	fromWalletID, toWalletID uuid.UUID,
	amount valueobjects.Money,
	status TransactionStatus,
	errorMessage string,
	createdAt, updatedAt time.Time,
) *TransactionLog {
	return &TransactionLog{
		id:             id,
		idempotencyKey: idempotencyKey,
		fromWalletID:   fromWalletID,
		toWalletID:     toWalletID,
		amount:         amount,
		status:         status,
		errorMessage:   errorMessage,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// Getters

func (t *TransactionLog) ID() uuid.UUID {
	return t.id
}

func (t *TransactionLog) IdempotencyKey() string {
	return t.idempotencyKey
}

func (t *TransactionLog) FromWalletID() uuid.UUID {
	return t.fromWalletID
}

func (t *TransactionLog) ToWalletID() uuid.UUID {
	return t.toWalletID
}

func (t *TransactionLog) Amount() valueobjects.Money {
	return t.amount
}

func (t *TransactionLog) Status() TransactionStatus {
	return t.status
}

func (t *TransactionLog) ErrorMessage() string {
	return t.errorMessage
}

func (t *TransactionLog) CreatedAt() time.Time {
	return t.createdAt
}

func (t *TransactionLog) UpdatedAt() time.Time {
	return t.updatedAt
}

// Status predicates

func (t *TransactionLog) IsPending() bool {
	return t.status == TransactionStatusPending
}

func (t *TransactionLog) IsCompleted() bool {
	return t.status == TransactionStatusCompleted
}

func (t *TransactionLog) IsFailed() bool {
	return t.status == TransactionStatusFailed
}

// State transitions

// MarkCompleted transitions PENDING → COMPLETED.
// Business rule: only a PENDING log can complete; terminal states are final.
func (t *TransactionLog) MarkCompleted() error {
	if t.status != TransactionStatusPending {
		return errors.ErrTransactionNotPending
	}

	t.status = TransactionStatusCompleted
	t.errorMessage = ""
	t.updatedAt = time.Now().UTC()

	return nil
}

// MarkFailed transitions PENDING → FAILED with an explanatory message.
// Business rule: a FAILED log always carries a non-empty error message.
func (t *TransactionLog) MarkFailed(reason string) error {
	if t.status != TransactionStatusPending {
		return errors.ErrTransactionNotPending
	}
	if reason == "" {
		return errors.ValidationError{
			Field:   "error_message",
			Message: "a failed transaction log requires a reason",
		}
	}

	t.status = TransactionStatusFailed
	t.errorMessage = reason
	t.updatedAt = time.Now().UTC()

	return nil
}
