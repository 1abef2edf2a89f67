package gateway

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		expected int64
	}{
		{"1500", 150000},
		{"19.99", 1999},
		{"19.995", 2000},
		{"19.994", 1999},
		{"0.01", 1},
		{"0.005", 1},
		{"1.1", 110},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToMinorUnits(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	assert.True(t, decimal.NewFromInt(1500).Equal(FromMinorUnits(150000)))
	assert.Equal(t, "19.99", FromMinorUnits(1999).String())
	assert.Equal(t, 0.01, FromMinorUnits(1).InexactFloat64())
}
