package shares

import (
	"harry_hype/internal/apperr" // Error classification
	"strings"                    // String manipulation

	"github.com/shopspring/decimal" // Decimal amounts
)

// ParseAmount reads a share amount. It must be a positive number with at most
// two decimals; the second result is the amount in base units.
func ParseAmount(raw string) (decimal.Decimal, uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, 0, apperr.Validation("amount is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, 0, apperr.Validation("amount must be a number")
	}
	if !d.IsPositive() {
		return decimal.Zero, 0, apperr.Validation("amount must be greater than zero")
	}
	units := d.Shift(shareDecimals)
	if !units.IsInteger() {
		return decimal.Zero, 0, apperr.Validation("amount supports at most 2 decimals")
	}
	bi := units.BigInt()
	if !bi.IsUint64() {
		return decimal.Zero, 0, apperr.Validation("amount is too large")
	}
	return d, bi.Uint64(), nil
}
