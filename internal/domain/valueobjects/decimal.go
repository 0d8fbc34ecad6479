// Package valueobjects contains immutable value objects that represent domain concepts
// without identity. They are compared by their values, not by identity.
//
// The package also owns the process-wide decimal configuration. Every monetary
// calculation in the system goes through shopspring/decimal; binary floating
// point is never acceptable on a money path.
package valueobjects

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of fractional digits kept by decimal division
// process-wide. 24 digits guarantee at least 20 significant digits for every
// rate this system divides (daily interest rates sit around 7.5e-4).
//
// Set exactly once, before any calculation. Tests and binaries share the same
// value through this package's init; nothing may mutate it afterwards.
const DivisionPrecision = 24

func init() {
	decimal.DivisionPrecision = DivisionPrecision
}

// ErrInvalidDecimal is returned when a string cannot be parsed as a decimal.
var ErrInvalidDecimal = errors.New("invalid decimal format")

// ParseDecimal parses a decimal string ("123.45", "0.00000001") into an exact
// decimal value.
//
// All persisted amounts round-trip through ParseDecimal and FixedString
// without loss.
func ParseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidDecimal, s)
	}
	return d, nil
}

// MustParseDecimal parses a decimal string and panics on failure.
// Use only for literals in initialization code and tests.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FixedString renders d with exactly scale fractional digits, rounding
// half-up. This is the canonical textual form every amount is persisted in:
// no exponent, no grouping, a leading zero before the point.
//
// Example:
//
//	FixedString(MustParseDecimal("7.534246575"), 8) // "7.53424658"
func FixedString(d decimal.Decimal, scale int32) string {
	return d.StringFixed(scale)
}

// RoundHalfUp rounds d to the given scale, half-up. shopspring's Round is
// half-away-from-zero, which is identical to half-up for the non-negative
// values this domain works with; amounts here are never negative.
func RoundHalfUp(d decimal.Decimal, scale int32) decimal.Decimal {
	return d.Round(scale)
}
