// Package entities - Wallet is the core entity on the transfer path.
// It enforces the single balance invariant everything else depends on:
// a committed wallet balance is never negative.
package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/Haleralex/ledgerhub/internal/domain/valueobjects"
)

// Wallet represents a value-holding account at scale 2 (cents).
//
// Entity Pattern:
// - Has identity (ID)
// - Enforces invariants (non-negative balance)
// - Mutated only inside a transfer transaction that holds its row lock
//
// Wallets are never deleted; history against them lives in the ledger.
type Wallet struct {
	id      uuid.UUID
	balance valueobjects.Money

	createdAt time.Time
	updatedAt time.Time
}

// NewWallet creates a wallet with the given initial balance.
// Money is non-negative by construction, so the factory cannot fail;
// callers validate the raw initial-balance input when parsing it.
func NewWallet(initialBalance valueobjects.Money) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		id:        uuid.New(),
		balance:   initialBalance,
		createdAt: now,
		updatedAt: now,
	}
}

// ReconstructWallet reconstructs a Wallet from stored data.
// Used by the repository to hydrate entities from the database.
func ReconstructWallet(
	id uuid.UUID,
	balance valueobjects.Money,
	createdAt, updatedAt time.Time,
) *Wallet {
	return &Wallet{
		id:        id,
		balance:   balance,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// Getters

func (w *Wallet) ID() uuid.UUID {
	return w.id
}

func (w *Wallet) Balance() valueobjects.Money {
	return w.balance
}

func (w *Wallet) CreatedAt() time.Time {
	return w.createdAt
}

func (w *Wallet) UpdatedAt() time.Time {
	return w.updatedAt
}

// Business Methods

// HasSufficientBalance checks if the wallet can cover the given amount.
func (w *Wallet) HasSufficientBalance(amount valueobjects.Money) bool {
	return w.balance.GreaterThanOrEqual(amount)
}

// Credit adds funds to the wallet.
//
// Business rule: the credited amount must be positive.
func (w *Wallet) Credit(amount valueobjects.Money) error {
	if !amount.IsPositive() {
		return errors.NewBusinessRuleViolation(
			"NON_POSITIVE_CREDIT",
			"credit amount must be positive",
			map[string]interface{}{"amount": amount.String()},
		)
	}

	w.balance = w.balance.Add(amount)
	w.updatedAt = time.Now().UTC()

	return nil
}

// Debit subtracts funds from the wallet.
//
// Business rules:
// - the debited amount must be positive
// - the balance may never go negative
func (w *Wallet) Debit(amount valueobjects.Money) error {
	if !amount.IsPositive() {
		return errors.NewBusinessRuleViolation(
			"NON_POSITIVE_DEBIT",
			"debit amount must be positive",
			map[string]interface{}{"amount": amount.String()},
		)
	}

	if !w.HasSufficientBalance(amount) {
		return errors.ErrInsufficientFunds
	}

	newBalance, err := w.balance.Subtract(amount)
	if err != nil {
		return err
	}

	w.balance = newBalance
	w.updatedAt = time.Now().UTC()

	return nil
}
