package utils

import (
	"github.com/shopspring/decimal"
)

// CentPlaces is the scale of entered money amounts and percentages.
const CentPlaces = 2

var (
	zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CentPlaces)
}

// PercentOf returns pct percent of amount exactly. The result is not rounded.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Shift(-2)
}

// ValidPercentage reports whether pct lies in (0, 100] with at most two
// decimal places, the precision percentages are stored with.
func ValidPercentage(pct decimal.Decimal) bool {
	return pct.GreaterThan(zero) && pct.LessThanOrEqual(hundred) && IsCentAligned(pct)
}

// Remaining returns 100 - allocated, floored at zero.
func Remaining(allocated decimal.Decimal) decimal.Decimal {
	rest := hundred.Sub(allocated)
	if rest.IsNegative() {
		return zero
	}
	return rest
}

// IsCentAligned reports whether amount carries no more than two decimal places.
func IsCentAligned(amount decimal.Decimal) bool {
	return amount.Equal(RoundCents(amount))
}
