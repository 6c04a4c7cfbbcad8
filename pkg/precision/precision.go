// Package precision provides an explicit fixed-precision context for decimal arithmetic.
//
// A Context rounds every result to a number of significant digits using banker's
// rounding. The zero Context performs no rounding.
package precision

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	MinLedgerDigits     = 5
	DefaultLedgerDigits = 12
	DefaultReportDigits = 10
)

type Context struct {
	digits int32
}

func New(digits int) (Context, error) {
	if digits < 1 {
		return Context{}, fmt.Errorf("precision must be at least 1 significant digit, got %d", digits)
	}
	return Context{digits: int32(digits)}, nil
}

// MustNew is New for package-level defaults; it panics on an invalid digit count.
func MustNew(digits int) Context {
	c, err := New(digits)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Context) Digits() int {
	return int(c.digits)
}

// Round rounds d to the context's significant digits.
func (c Context) Round(d decimal.Decimal) decimal.Decimal {
	if c.digits <= 0 || d.IsZero() {
		return d
	}
	return d.RoundBank(c.digits - adjusted(d) - 1)
}

func (c Context) Add(a, b decimal.Decimal) decimal.Decimal {
	return c.Round(a.Add(b))
}

func (c Context) Sub(a, b decimal.Decimal) decimal.Decimal {
	return c.Round(a.Sub(b))
}

func (c Context) Mul(a, b decimal.Decimal) decimal.Decimal {
	return c.Round(a.Mul(b))
}

// Div divides a by b. b must not be zero.
func (c Context) Div(a, b decimal.Decimal) decimal.Decimal {
	if a.IsZero() {
		return decimal.Zero
	}
	digits := c.digits
	if digits <= 0 {
		digits = int32(decimal.DivisionPrecision)
	}
	// enough places to hold the requested significant digits plus guard digits
	places := digits - (adjusted(a) - adjusted(b)) + 3
	if places < 0 {
		places = 0
	}
	return c.Round(a.DivRound(b, places))
}

// adjusted returns the exponent of the most significant digit of d.
func adjusted(d decimal.Decimal) int32 {
	return int32(d.NumDigits()) + d.Exponent() - 1
}
