// Package units converts between base-unit integers and human readable
// decimal amounts.
package units

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Format renders a base-unit amount with the given number of decimals,
// trimming trailing zeros.
func Format(amount *uint256.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	d, err := decimal.NewFromString(amount.Dec())
	if err != nil {
		return amount.Dec()
	}
	return d.Shift(-decimals).String()
}

// Parse converts a human readable amount into base units. Amounts with more
// fractional digits than decimals are rejected.
func Parse(amount string, decimals int32) (*uint256.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %s", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid amount %q: must not be negative", amount)
	}
	shifted := d.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf(
			"invalid amount %q: more than %d decimal places", amount, decimals,
		)
	}
	out, err := uint256.FromDecimal(shifted.String())
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %s", amount, err)
	}
	return out, nil
}
