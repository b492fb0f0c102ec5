// Package money holds currency amounts as integer minor units.
//
// Amounts cross the wire as decimal major units (1200.50) and are converted to
// Cents (120050) on the way in, so no arithmetic in the engine ever touches a
// float.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var monthsTimesPercent = decimal.NewFromInt(1200)

// MaxAmount bounds every amount accepted from outside. It leaves enough
// headroom that payment + interest and plan totals cannot overflow int64.
const MaxAmount Cents = 1_000_000_000_000_000

var maxMajor = MaxAmount.Decimal()

// ErrOutOfRange is returned for amounts whose magnitude exceeds MaxAmount.
var ErrOutOfRange = errors.New("amount out of range")

// Cents is an amount in minor currency units.
type Cents int64

// FromDecimal converts a major-unit amount to Cents, rounding half away from
// zero to two places.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	rounded := d.Round(2)
	if rounded.Abs().GreaterThan(maxMajor) {
		return 0, fmt.Errorf("%w: %s exceeds %s", ErrOutOfRange, d.String(), maxMajor.StringFixed(2))
	}
	return Cents(rounded.Shift(2).IntPart()), nil
}

// FromMajor is a convenience for literals in tests and CLI flags.
func FromMajor(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// MarshalJSON writes the amount as an unquoted major-unit number.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string in major units.
func (c *Cents) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", string(b), err)
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MonthlyInterest is balance * annualPercent / 100 / 12, rounded half-up to
// a whole cent.
func MonthlyInterest(balance Cents, annualPercent decimal.Decimal) Cents {
	if balance <= 0 || annualPercent.Sign() <= 0 {
		return 0
	}
	interest := decimal.NewFromInt(int64(balance)).Mul(annualPercent).Div(monthsTimesPercent)
	return Cents(interest.Round(0).IntPart())
}

// Max returns the larger of a and b.
func Max(a, b Cents) Cents {
	if a > b {
		return a
	}
	return b
}

// Sum adds up amounts.
func Sum(amounts ...Cents) Cents {
	var total Cents
	for _, a := range amounts {
		total += a
	}
	return total
}
