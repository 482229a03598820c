// Package money holds currency amounts as an integer count of minor units
// (cents). All arithmetic stays in that domain; decimal text is only
// produced at the JSON/CSV boundary.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Money is an amount in minor currency units.
type Money int64

const Zero Money = 0

var hundred = decimal.NewFromInt(100)

const (
	// maxIntegerDigits keeps cents inside int64.
	maxIntegerDigits = 16
	minExponent      = -18
)

// Parse converts numeric text ("500", "12.34", "1e3") to Money, rounding half
// away from zero to two decimal places. NaN, infinities and anything that is
// not a number are rejected.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// FromDecimal rounds d to cents. Exponent and digit count are checked first:
// rounding rescales the coefficient, which is unbounded work for "1e99999999".
func FromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsZero() {
		return 0, nil
	}
	exp := d.Exponent()
	if exp < minExponent || exp > maxIntegerDigits || d.NumDigits()+int(exp) > maxIntegerDigits {
		return 0, ErrInvalidAmount
	}
	cents := d.Round(2).Mul(hundred)
	if !cents.IsInteger() || cents.Abs().GreaterThan(decimal.NewFromInt(1<<62)) {
		return 0, ErrInvalidAmount
	}
	return Money(cents.IntPart()), nil
}

// FromFloat is meant for configuration values only, never for arithmetic.
func FromFloat(f float64) Money {
	m, err := FromDecimal(decimal.NewFromFloat(f))
	if err != nil {
		return 0
	}
	return m
}

func FromCents(cents int64) Money {
	return Money(cents)
}

func (m Money) Cents() int64 {
	return int64(m)
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m Money) IsPositive() bool {
	return m > 0
}

func (m Money) IsNegative() bool {
	return m < 0
}

// String renders the amount with exactly two decimals, e.g. "1200.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Sum adds amounts in minor units.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// Percent returns part/whole*100 rounded to two decimals. A zero whole yields 0.
func Percent(part, whole Money) float64 {
	if whole == 0 {
		return 0
	}
	p := decimal.NewFromInt(int64(part)).
		Mul(hundred).
		DivRound(decimal.NewFromInt(int64(whole)), 2)
	f, _ := p.Float64()
	return f
}

// MarshalJSON writes the amount as a JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		*m = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ErrInvalidAmount
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
