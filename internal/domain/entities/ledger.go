// Package entities - LedgerEntry is the immutable double-entry record.
// Every completed transfer emits exactly two entries: a DEBIT against the
// source wallet and a CREDIT against the destination, equal in amount and
// pointing at the same transaction log.
package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/Haleralex/ledgerhub/internal/domain/valueobjects"
)

// EntryType distinguishes the two sides of a double-entry pair.
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// IsValid checks if the entry type is valid.
func (t EntryType) IsValid() bool {
	return t == EntryTypeDebit || t == EntryTypeCredit
}

// LedgerEntry is an append-only balance movement record.
//
// Invariants, enforced at construction:
//   - DEBIT:  balanceAfter = balanceBefore − amount
//   - CREDIT: balanceAfter = balanceBefore + amount
//
// Entries are immutable; there are no state transitions and no setters.
type LedgerEntry struct {
	id               uuid.UUID
	walletID         uuid.UUID
	transactionLogID uuid.UUID
	entryType        EntryType
	amount           valueobjects.Money
	balanceBefore    valueobjects.Money
	balanceAfter     valueobjects.Money
	description      string

	createdAt time.Time
}

// NewDebitEntry creates the DEBIT side of a transfer pair.
func NewDebitEntry(
	walletID, transactionLogID uuid.UUID,
	amount, balanceBefore, balanceAfter valueobjects.Money,
	description string,
) (*LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, errors.ValidationError{
			Field:   "amount",
			Message: "ledger amount must be positive",
		}
	}

	expected, err := balanceBefore.Subtract(amount)
	if err != nil || !expected.Equals(balanceAfter) {
		return nil, fmt.Errorf(
			"%w: debit entry arithmetic (%s - %s != %s)",
			errors.ErrInternalInconsistency,
			balanceBefore, amount, balanceAfter,
		)
	}

	return newLedgerEntry(walletID, transactionLogID, EntryTypeDebit,
		amount, balanceBefore, balanceAfter, description), nil
}

// NewCreditEntry creates the CREDIT side of a transfer pair.
func NewCreditEntry(
	walletID, transactionLogID uuid.UUID,
	amount, balanceBefore, balanceAfter valueobjects.Money,
	description string,
) (*LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, errors.ValidationError{
			Field:   "amount",
			Message: "ledger amount must be positive",
		}
	}

	if !balanceBefore.Add(amount).Equals(balanceAfter) {
		return nil, fmt.Errorf(
			"%w: credit entry arithmetic (%s + %s != %s)",
			errors.ErrInternalInconsistency,
			balanceBefore, amount, balanceAfter,
		)
	}

	return newLedgerEntry(walletID, transactionLogID, EntryTypeCredit,
		amount, balanceBefore, balanceAfter, description), nil
}

func newLedgerEntry(
	walletID, transactionLogID uuid.UUID,
	entryType EntryType,
	amount, balanceBefore, balanceAfter valueobjects.Money,
	description string,
) *LedgerEntry {
	return &LedgerEntry{
		id:               uuid.New(),
		walletID:         walletID,
		transactionLogID: transactionLogID,
		entryType:        entryType,
		amount:           amount,
		balanceBefore:    balanceBefore,
		balanceAfter:     balanceAfter,
		description:      description,
		createdAt:        time.Now().UTC(),
	}
}

// ReconstructLedgerEntry reconstructs a LedgerEntry from stored data.
func ReconstructLedgerEntry(
	id, walletID, transactionLogID uuid.UUID,
	entryType EntryType,
	amount, balanceBefore, balanceAfter valueobjects.Money,
	description string,
	createdAt time.Time,
) *LedgerEntry {
	return &LedgerEntry{
		id:               id,
		walletID:         walletID,
		transactionLogID: transactionLogID,
		entryType:        entryType,
		amount:           amount,
		balanceBefore:    balanceBefore,
		balanceAfter:     balanceAfter,
		description:      description,
		createdAt:        createdAt,
	}
}

// Getters

func (e *LedgerEntry) ID() uuid.UUID {
	return e.id
}

func (e *LedgerEntry) WalletID() uuid.UUID {
	return e.walletID
}

func (e *LedgerEntry) TransactionLogID() uuid.UUID {
	return e.transactionLogID
}

func (e *LedgerEntry) EntryType() EntryType {
	return e.entryType
}

func (e *LedgerEntry) Amount() valueobjects.Money {
	return e.amount
}

func (e *LedgerEntry) BalanceBefore() valueobjects.Money {
	return e.balanceBefore
}

func (e *LedgerEntry) BalanceAfter() valueobjects.Money {
	return e.balanceAfter
}

func (e *LedgerEntry) Description() string {
	return e.description
}

func (e *LedgerEntry) CreatedAt() time.Time {
	return e.createdAt
}
