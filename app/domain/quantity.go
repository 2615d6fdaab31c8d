package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// QuantityScale is the number of fractional digits persisted for quantities.
const QuantityScale = 4

// NewQuantity converts a float coming from an outer layer into a fixed-point quantity.
func NewQuantity(v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, fmt.Errorf("%w: non-finite value %v", ErrInvalidDelta, v)
	}
	return decimal.NewFromFloat(v).Round(QuantityScale), nil
}

// ParseQuantity parses a decimal string such as "12.5".
func ParseQuantity(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidDelta, s)
	}
	if !d.Equal(d.Round(QuantityScale)) {
		return decimal.Zero, fmt.Errorf("%w: more than %d fractional digits in %q", ErrInvalidDelta, QuantityScale, s)
	}
	return d, nil
}
