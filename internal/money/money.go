// Package money provides a decimal-exact monetary amount.
//
// Amounts are stored at full precision; rounding to currency precision
// happens only on computed values (line totals, discounts), never on
// amounts that merely pass through. Round-tripping a parsed amount through
// String returns the original text.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// currencyPlaces is the number of decimal places carried by rounded amounts.
const currencyPlaces = 2

// Money is a decimal-exact monetary amount in a single implicit currency.
// The zero value is zero money and is safe to use.
type Money struct {
	d decimal.Decimal
}

// Zero returns a zero amount.
func Zero() Money {
	return Money{}
}

// FromDecimal wraps a decimal as a monetary amount.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d}
}

// Parse parses a decimal string like "19.99" into a monetary amount.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money amount %q: %w", s, err)
	}
	return Money{d: d}, nil
}

// MustParse is like Parse but panics on invalid input. For use in tests
// and package-level constants only.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// Add returns m + other at full precision.
func (m Money) Add(other Money) Money {
	return Money{d: m.d.Add(other.d)}
}

// Sub returns m - other at full precision.
func (m Money) Sub(other Money) Money {
	return Money{d: m.d.Sub(other.d)}
}

// MulInt returns m * n rounded to currency precision.
func (m Money) MulInt(n int) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(int64(n))).Round(currencyPlaces)}
}

// Percent returns p percent of m rounded to currency precision.
// Rounding is half away from zero.
func (m Money) Percent(p int) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(int64(p))).Div(decimal.NewFromInt(100)).Round(currencyPlaces)}
}

// Round returns m rounded to currency precision, half away from zero.
func (m Money) Round() Money {
	return Money{d: m.d.Round(currencyPlaces)}
}

// Equal reports whether two amounts are numerically equal.
// "1.5" and "1.50" are equal.
func (m Money) Equal(other Money) bool {
	return m.d.Equal(other.d)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// String returns the exact decimal representation. A parsed amount
// round-trips unchanged.
func (m Money) String() string {
	return m.d.String()
}

// StringFixed returns the amount formatted at currency precision, for
// display. "5" renders as "5.00".
func (m Money) StringFixed() string {
	return m.d.StringFixed(currencyPlaces)
}

// MarshalText implements encoding.TextMarshaler.
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Money) UnmarshalText(text []byte) error {
	d, err := decimal.NewFromString(string(text))
	if err != nil {
		return fmt.Errorf("invalid money amount %q: %w", text, err)
	}
	m.d = d
	return nil
}
