package validation

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// defaultDisplayDigits caps fractional digits for tokens without decimals.
const defaultDisplayDigits = 6

// FormatAmount renders a base-unit amount in display units, truncated to
// the token's decimals (or 6 when the token has none).
func FormatAmount(v *big.Int, decimals int32) string {
	return formatDecimal(decimal.NewFromBigInt(v, 0), decimals, displayDigits(decimals))
}

func displayDigits(decimals int32) int32 {
	if decimals == 0 {
		return defaultDisplayDigits
	}
	return decimals
}

func formatDecimal(v decimal.Decimal, decimals, maxDigits int32) string {
	return v.Shift(-decimals).Truncate(maxDigits).String()
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
