// Package valueobjects - Money is the most critical value object on the
// transfer path. Wallet balances, transfer amounts and ledger figures are all
// Money: an exact decimal at scale 2.
package valueobjects

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the fractional precision of wallet money (cents).
const MoneyScale = 2

// Money represents a non-negative monetary amount at scale 2.
//
// Value Object Pattern:
// - Immutable: all operations return new Money instances
// - Self-validating: cannot create negative or sub-cent Money
//
// Backed by shopspring/decimal so that arithmetic is exact; 0.10 + 0.20
// is exactly 0.30.
type Money struct {
	amount decimal.Decimal
}

// Common domain errors for Money operations
var (
	ErrNegativeAmount     = errors.New("amount cannot be negative")
	ErrInsufficientAmount = errors.New("insufficient amount")
	ErrInvalidAmount      = errors.New("invalid amount format")
	ErrSubCentPrecision   = errors.New("amount has more than 2 decimal places")
)

// NewMoney creates a Money instance from a decimal string.
//
// Returns error if:
//   - the string cannot be parsed
//   - the amount is negative
//   - the amount carries significant digits below one cent
//
// Example:
//
//	money, err := NewMoney("100.50")
func NewMoney(amountStr string) (Money, error) {
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidAmount, amountStr)
	}
	return NewMoneyFromDecimal(amount)
}

// NewMoneyFromDecimal creates a Money instance from an exact decimal value,
// applying the same validation as NewMoney.
func NewMoneyFromDecimal(amount decimal.Decimal) (Money, error) {
	// Business rule: Money cannot be negative (debits are modeled as
	// operations, not as negative amounts).
	if amount.IsNegative() {
		return Money{}, ErrNegativeAmount
	}

	// Business rule: scale 2. "100.500" is fine, "100.505" is not.
	if !amount.Truncate(MoneyScale).Equal(amount) {
		return Money{}, fmt.Errorf("%w: %s", ErrSubCentPrecision, amount.String())
	}

	return Money{amount: amount}, nil
}

// MustMoney parses a money string and panics on failure.
// Use only in initialization code and tests.
func MustMoney(amountStr string) Money {
	m, err := NewMoney(amountStr)
	if err != nil {
		panic(err)
	}
	return m
}

// ZeroMoney returns the zero amount.
func ZeroMoney() Money {
	return Money{amount: decimal.Zero}
}

// Amount returns the underlying decimal value.
// decimal.Decimal is itself immutable, so no copy is needed.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// String returns the canonical fixed-scale form, e.g. "100.50".
// NewMoney(m.String()) always reproduces m.
func (m Money) String() string {
	return m.amount.StringFixed(MoneyScale)
}

// Add returns a new Money with the sum of two amounts.
// IMMUTABLE: returns a new instance, never modifies the receiver.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Subtract returns a new Money with the difference.
// Returns ErrInsufficientAmount if the result would be negative; balances
// never go below zero.
func (m Money) Subtract(other Money) (Money, error) {
	diff := m.amount.Sub(other.amount)
	if diff.IsNegative() {
		return Money{}, ErrInsufficientAmount
	}
	return Money{amount: diff}, nil
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// GreaterThan checks if this amount is greater than another.
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// GreaterThanOrEqual checks if this amount is >= another.
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.amount.GreaterThanOrEqual(other.amount)
}

// LessThan checks if this amount is less than another.
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// Equals checks if two money values are equal.
// "100.5" and "100.50" are equal; comparison is by value, not representation.
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}
