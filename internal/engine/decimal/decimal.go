// Package decimal centralizes the fixed-precision rounding rules shared by
// orders, prices, and fees across the matching engine. Every monetary value
// that crosses into the book or onto a Trade record is normalized through
// Round or RoundPrice first; arithmetic leading up to that point stays in
// unrounded shopspring/decimal.Decimal so that rounding happens exactly
// once, at assignment time.
package decimal

import (
	"github.com/shopspring/decimal"
)

// Decimal is the engine-wide monetary type. It is a type alias, not a
// wrapper, so callers can use the full shopspring API directly.
type Decimal = decimal.Decimal

// Zero is the additive identity, exported so callers don't need to import
// shopspring/decimal directly just to build a zero value.
var Zero = decimal.Zero

// NewFromInt builds a Decimal from an int64, used by tests and config defaults.
func NewFromInt(v int64) Decimal {
	return decimal.NewFromInt(v)
}

// NewFromString parses a decimal literal, used for config-supplied limits.
func NewFromString(s string) (Decimal, error) {
	return decimal.NewFromString(s)
}

// Round applies half-away-from-zero rounding at the given precision.
// Precision may be negative, meaning "round to a multiple of 10^|precision|"
// (e.g. Round(12345, -2) == 12300). shopspring's Round already rounds half
// away from zero for non-negative places; the negative branch rescales
// through a power of ten and reuses the same primitive.
func Round(value Decimal, precision int32) Decimal {
	if precision >= 0 {
		return value.Round(precision)
	}
	scale := decimal.New(1, -precision) // 10^|precision|
	return value.Div(scale).Round(0).Mul(scale)
}

// RoundPrice normalizes an incoming price to the symbol's tick size. For a
// symbol whose PricePrecision is non-negative, this is an ordinary Round.
// When largeTick is set (the symbol's LargeTick flag), the price
// additionally snaps to the nearest 1000 units of the smallest
// representable step, per the engine's large-tick convention: the scaled
// integer representation of price is rounded to the nearest multiple of
// 1000 before being rescaled back to decimal. See DESIGN.md for the
// disambiguation of this rule (flagged as an open question upstream).
func RoundPrice(price Decimal, pricePrecision int32, largeTick bool) Decimal {
	rounded := Round(price, pricePrecision)
	if !largeTick {
		return rounded
	}
	step := decimal.New(1, -pricePrecision) // smallest representable increment
	units := rounded.Div(step).Round(0)     // price expressed in integer steps
	thousand := decimal.NewFromInt(1000)
	snapped := units.Div(thousand).Round(0).Mul(thousand)
	return snapped.Mul(step)
}

// RoundAmount rounds a price*quantity (or amount*fee_rate) product to a
// symbol's quote precision using half-away-from-zero rounding. Negative
// precision is supported, per Round.
func RoundAmount(amount Decimal, quotePrecision int32) Decimal {
	return Round(amount, quotePrecision)
}

// IsZeroAfterRounding reports whether a non-zero value rounds away to zero
// at the given precision -- the trigger for an InvalidParameter rejection
// per the normalization rule in §4.1.
func IsZeroAfterRounding(value Decimal, precision int32) bool {
	if value.IsZero() {
		return false
	}
	return Round(value, precision).IsZero()
}
