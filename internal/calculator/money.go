package calculator

import "github.com/shopspring/decimal"

// Epsilon is the tolerance for split validation and the threshold below
// which a balance is displayed as settled.
var Epsilon = decimal.New(1, -2)

// RoundCents rounds d to two decimal places, half away from zero.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsSettled reports whether |d| is below Epsilon.
func IsSettled(d decimal.Decimal) bool {
	return d.Abs().LessThan(Epsilon)
}

// WithinEpsilon reports whether |a-b| <= Epsilon.
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}
