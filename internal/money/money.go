// Package money holds the fixed-point helpers shared by the split policies
// and the ledger. Amounts are always decimal.Decimal; binary floats never
// enter a calculation.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits of a currency's minor unit
// (2 for cents).
type Places int32

// DefaultPlaces is the minor unit used when none is configured.
const DefaultPlaces Places = 2

// Limits on parsed amounts. Exponent notation is accepted, so without them
// a few bytes of input could expand to millions of digits.
const (
	MaxInputLen      = 40
	MaxIntegerDigits = 15
	MaxScale         = 10
)

// ErrOutOfRange is returned by Parse for amounts past the limits above.
var ErrOutOfRange = errors.New("amount out of range")

// Hundred is the percentage base.
var Hundred = decimal.NewFromInt(100)

// Round rounds d to the minor unit using HALF_UP (half away from zero).
func Round(d decimal.Decimal, places Places) decimal.Decimal {
	return d.Round(int32(places))
}

// DivRound divides d by n and rounds the quotient HALF_UP to the minor unit.
func DivRound(d, n decimal.Decimal, places Places) decimal.Decimal {
	return d.DivRound(n, int32(places))
}

// IsMinorUnit reports whether d carries no precision finer than the minor unit.
func IsMinorUnit(d decimal.Decimal, places Places) bool {
	return d.Equal(d.Truncate(int32(places)))
}

// Sum adds the given amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, values...)
}

// Parse parses a decimal amount such as "12.50". Amounts with more than
// MaxIntegerDigits integer digits or MaxScale fractional digits are rejected
// with ErrOutOfRange.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	if len(s) > MaxInputLen {
		return decimal.Zero, fmt.Errorf("%w: %d characters", ErrOutOfRange, len(s))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if err := CheckRange(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// CheckRange returns ErrOutOfRange if d has more than MaxIntegerDigits
// integer digits or more than MaxScale fractional digits.
func CheckRange(d decimal.Decimal) error {
	if d.Exponent() < -MaxScale {
		return fmt.Errorf("%w: more than %d fractional digits", ErrOutOfRange, MaxScale)
	}
	if int64(d.NumDigits())+int64(d.Exponent()) > MaxIntegerDigits {
		return fmt.Errorf("%w: more than %d integer digits", ErrOutOfRange, MaxIntegerDigits)
	}
	return nil
}

// MustParse is Parse for constants and tests; it panics on bad input.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders d with exactly the minor-unit number of digits.
func Format(d decimal.Decimal, places Places) string {
	return d.StringFixed(int32(places))
}
