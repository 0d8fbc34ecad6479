// Package entities - Account is the interest-accruing savings aggregate.
// Balances live at scale 8 and are mutated only by interest application.
package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Haleralex/ledgerhub/internal/domain/errors"
)

// AccountBalanceScale is the fractional precision of account balances and
// interest amounts.
const AccountBalanceScale = 8

// Account represents an interest-accumulator account.
// Like Wallet it is never deleted; unlike Wallet its history lives in
// interest logs rather than a double-entry ledger.
type Account struct {
	id      uuid.UUID
	balance decimal.Decimal

	createdAt time.Time
	updatedAt time.Time
}

// NewAccount creates an account with the given initial balance.
// Business rule: the balance may not start negative.
func NewAccount(initialBalance decimal.Decimal) (*Account, error) {
	if initialBalance.IsNegative() {
		return nil, errors.ValidationError{
			Field:   "initial_balance",
			Message: "initial balance cannot be negative",
		}
	}

	now := time.Now().UTC()
	return &Account{
		id:        uuid.New(),
		balance:   initialBalance,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructAccount reconstructs an Account from stored data.
func ReconstructAccount(
	id uuid.UUID,
	balance decimal.Decimal,
	createdAt, updatedAt time.Time,
) *Account {
	return &Account{
		id:        id,
		balance:   balance,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// Getters

func (a *Account) ID() uuid.UUID {
	return a.id
}

func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

// BalanceString returns the canonical scale-8 form, e.g. "10000.00000000".
func (a *Account) BalanceString() string {
	return a.balance.StringFixed(AccountBalanceScale)
}

func (a *Account) CreatedAt() time.Time {
	return a.createdAt
}

func (a *Account) UpdatedAt() time.Time {
	return a.updatedAt
}

// ApplyInterest adds an interest amount to the balance.
// Business rule: interest is never negative (a zero principal earns zero).
func (a *Account) ApplyInterest(interest decimal.Decimal) error {
	if interest.IsNegative() {
		return errors.NewBusinessRuleViolation(
			"NEGATIVE_INTEREST",
			"interest amount cannot be negative",
			map[string]interface{}{"interest": interest.String()},
		)
	}

	a.balance = a.balance.Add(interest)
	a.updatedAt = time.Now().UTC()

	return nil
}
