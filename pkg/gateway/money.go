package gateway

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount to the smallest currency unit.
// Rounds half away from zero: 19.995 -> 2000, 19.994 -> 1999.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts a minor-unit amount back to major units
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
