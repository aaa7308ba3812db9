package chain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Decimals is the number of fraction digits in one coin
const Decimals = 8

var coin = decimal.New(1, Decimals)

// ToBaseUnits converts a coin amount to integer base units, rounding half
// away from zero.
func ToBaseUnits(amount decimal.Decimal) (int64, error) {
	units := amount.Mul(coin).Round(0)
	if !units.IsInteger() || units.Abs().GreaterThan(decimal.NewFromInt(1<<62)) {
		return 0, fmt.Errorf("amount %s is out of range", amount.String())
	}
	return units.IntPart(), nil
}

func FromBaseUnits(units int64) decimal.Decimal {
	return decimal.New(units, -Decimals)
}

// formatCoins renders base units the way node RPC amount fields expect
func formatCoins(units int64) json8 {
	return json8(FromBaseUnits(units).StringFixed(Decimals))
}

// json8 marshals as a bare JSON number with eight fraction digits
type json8 string

func (j json8) MarshalJSON() ([]byte, error) {
	return []byte(j), nil
}
