// Package dividends finds dividend cash that has not been reinvested yet.
package dividends

import (
	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/drip/pkg/types"
)

// State holds the uninvested dividend cents for every held symbol
type State struct {
	symbols  []string
	bySymbol map[string]int64
	total    int64
}

// Compute scans activities newest first and sums, per held symbol, the
// dividends received after that symbol's most recent posted buy order.
func Compute(positions []types.Position, activities []types.Activity) *State {
	state := &State{
		symbols:  make([]string, 0, len(positions)),
		bySymbol: make(map[string]int64, len(positions)),
	}
	for _, pos := range positions {
		if _, seen := state.bySymbol[pos.Symbol]; seen {
			continue
		}
		state.symbols = append(state.symbols, pos.Symbol)
		state.bySymbol[pos.Symbol] = 0
	}

	settled := make(map[string]bool, len(state.symbols))
	for _, a := range activities {
		if len(settled) == len(state.symbols) {
			break
		}

		if _, held := state.bySymbol[a.Symbol]; !held || settled[a.Symbol] {
			continue
		}

		switch {
		case a.IsPostedBuy():
			settled[a.Symbol] = true
		case a.IsDividend():
			cents := a.Amount.Shift(2).Round(0).IntPart()
			state.bySymbol[a.Symbol] += cents
			state.total += cents
		}
	}

	return state
}

// Symbols returns the held symbols in position order
func (s *State) Symbols() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Amount returns the uninvested dividends for a symbol
func (s *State) Amount(symbol string) decimal.Decimal {
	return decimal.New(s.bySymbol[symbol], -2)
}

// Total returns the uninvested dividends across all symbols
func (s *State) Total() decimal.Decimal {
	return decimal.New(s.total, -2)
}

// Cents returns the per-symbol amounts in cents
func (s *State) Cents() map[string]int64 {
	out := make(map[string]int64, len(s.bySymbol))
	for symbol, cents := range s.bySymbol {
		out[symbol] = cents
	}
	return out
}
