// Package allocation splits buying power across held symbols.
//
// All arithmetic is done on integer cents; decimals only appear at the
// package boundary.
package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/drip/pkg/dividends"
	"github.com/vignesh-goutham/drip/pkg/types"
)

// MinimumOrder is the smallest fractional buy the brokerage accepts
var MinimumOrder = decimal.NewFromInt(1)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.New(5, -1)
)

// FromCents converts integer cents back to a currency amount
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ComputeBaseOrder returns the even share of buying power left after reserving
// the uninvested dividends, floored to the cent. It never exceeds the exact share.
func ComputeBaseOrder(buyingPower decimal.Decimal, numPositions int, totalUninvested decimal.Decimal) (decimal.Decimal, error) {
	if numPositions < 1 {
		return decimal.Zero, fmt.Errorf("%w: number of positions must be at least 1, got %d", types.ErrInvalidInput, numPositions)
	}

	// floor(floor(x)/n) == floor(x/n) for n > 0
	available := buyingPower.Sub(totalUninvested).Shift(2).Floor().IntPart()
	return FromCents(floorDiv(available, int64(numPositions))), nil
}

// ComputeBuyAmount adds a symbol's own dividends to the base share, rounded to the cent
func ComputeBuyAmount(base, dividend decimal.Decimal) decimal.Decimal {
	// half a cent rounds up, also for negative amounts
	cents := base.Add(dividend).Mul(hundred).Add(half).Floor()
	return FromCents(cents.IntPart())
}

// Plan builds one OrderPlan per held symbol, in position order
func Plan(buyingPower decimal.Decimal, state *dividends.State) ([]types.OrderPlan, error) {
	base, err := ComputeBaseOrder(buyingPower, len(state.Symbols()), state.Total())
	if err != nil {
		return nil, err
	}

	plans := make([]types.OrderPlan, 0, len(state.Symbols()))
	for _, symbol := range state.Symbols() {
		dividend := state.Amount(symbol)
		plans = append(plans, types.OrderPlan{
			Symbol:         symbol,
			BuyAmount:      ComputeBuyAmount(base, dividend),
			DividendAmount: dividend,
		})
	}
	return plans, nil
}

// BelowMinimum reports whether an amount is too small to be sent as an order
func BelowMinimum(amount decimal.Decimal) bool {
	return amount.LessThan(MinimumOrder)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
