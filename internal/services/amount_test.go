package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmountFromUnits(t *testing.T) {
	assert.True(t, AmountFromUnits(5000).Equal(decimal.RequireFromString("5000")))
	assert.True(t, AmountFromUnits(0).Equal(decimal.Zero))
	assert.True(t, AmountFromUnits(-300).Equal(decimal.RequireFromString("-300")))
}

func TestFitsLedger(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		fits   bool
	}{
		{"whole units", "5000", true},
		{"two decimals", "123.45", true},
		{"column maximum", "99999999.99", true},
		{"negative within bound", "-99999999.99", true},
		{"over column maximum", "100000000", false},
		{"three decimals", "0.001", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.fits, FitsLedger(decimal.RequireFromString(tc.amount)))
		})
	}
}
