package analytics

import "github.com/shopspring/decimal"

type SymbolAmounts struct {
	BySymbol map[string]decimal.Decimal `json:"by_symbol" yaml:"by_symbol"`
	Total    decimal.Decimal            `json:"total" yaml:"total"`
}

// TradedVolume sums LastPx * LastQty per symbol.
func TradedVolume(execs []Execution) SymbolAmounts {
	out := SymbolAmounts{BySymbol: map[string]decimal.Decimal{}, Total: decimal.Zero}
	for _, e := range execs {
		out.BySymbol[e.Symbol] = out.BySymbol[e.Symbol].Add(e.Notional())
	}
	for _, v := range out.BySymbol {
		out.Total = out.Total.Add(v)
	}
	return out
}

// VWAP is sum(px*qty)/sum(qty) per symbol, zero when no quantity traded.
func VWAP(execs []Execution) map[string]decimal.Decimal {
	notional := map[string]decimal.Decimal{}
	qty := map[string]decimal.Decimal{}
	for _, e := range execs {
		notional[e.Symbol] = notional[e.Symbol].Add(e.Notional())
		qty[e.Symbol] = qty[e.Symbol].Add(e.LastQty)
	}

	out := make(map[string]decimal.Decimal, len(notional))
	for symbol, n := range notional {
		q := qty[symbol]
		if q.IsZero() {
			out[symbol] = decimal.Zero
			continue
		}
		out[symbol] = n.DivRound(q, vwapPrecision)
	}
	return out
}

const vwapPrecision = 8
