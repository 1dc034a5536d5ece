package services

import "github.com/shopspring/decimal"

// MaxAmount is the largest value the movements NUMERIC(10,2) column holds.
var MaxAmount = decimal.RequireFromString("99999999.99")

// AmountFromUnits converts a boundary integer amount (whole currency units)
// into the fixed-point decimal the ledger stores. The conversion is exact,
// there is no rounding step.
func AmountFromUnits(units int64) decimal.Decimal {
	return decimal.NewFromInt(units)
}

// FitsLedger reports whether amount can be stored in a movement row:
// at most two fractional digits and within the column's magnitude bound.
func FitsLedger(amount decimal.Decimal) bool {
	return amount.Abs().LessThanOrEqual(MaxAmount) && amount.Equal(amount.Truncate(2))
}
