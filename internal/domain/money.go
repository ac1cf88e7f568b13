// internal/domain/money.go
package domain

import (
	"math"
	"strings"

	"wallet-ledger/internal/util"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is applied when a request does not name a currency.
const DefaultCurrency = "INR"

// minorUnitExponent is the number of decimal places carried by every supported currency.
const minorUnitExponent = 2

var (
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
)

// ToMinorUnits converts a major-unit decimal amount (e.g. 12.34) into integer minor units (1234).
// Sub-minor fractions are rounded half away from zero. The result must be strictly positive.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Shift(minorUnitExponent).Round(0)
	if minor.LessThanOrEqual(decimal.Zero) || minor.GreaterThan(maxMinorUnits) {
		return 0, util.ErrAmountInvalid
	}
	return minor.IntPart(), nil
}

// FromMinorUnits converts integer minor units back to a major-unit decimal.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -minorUnitExponent)
}

// NormalizeCurrency upper-cases a currency code and falls back to DefaultCurrency when empty.
func NormalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return DefaultCurrency
	}
	return currency
}

// ValidCurrency reports whether code is a three-letter alphabetic code.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
