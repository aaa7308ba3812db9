package chain

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"12.5", 1250000000},
		{"1", 100000000},
		{"0.00000001", 1},
		{"0.000000015", 2},
		{"0.000000014", 1},
		{"-0.000000015", -2},
	}
	for _, tt := range tests {
		got, err := ToBaseUnits(decimal.RequireFromString(tt.in))
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestToBaseUnits_OutOfRange(t *testing.T) {
	_, err := ToBaseUnits(decimal.RequireFromString("1e20"))
	assert.Error(t, err)
}

func TestBaseUnitsRoundTripProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("ToBaseUnits(FromBaseUnits(n)) == n", prop.ForAll(
		func(n int64) bool {
			got, err := ToBaseUnits(FromBaseUnits(n))
			return err == nil && got == n
		},
		gen.Int64Range(-1_000_000_000_000_000, 1_000_000_000_000_000),
	))

	properties.TestingRun(t)
}

func TestFormatCoins(t *testing.T) {
	b, err := json.Marshal(map[string]any{"amount": formatCoins(1250000000)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 12.50000000}`, string(b))
}
