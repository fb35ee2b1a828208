package analytics

import (
	"fmt"
	"sort"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/shopspring/decimal"
)

type PnLMode string

const (
	// PnLModeReference marks executions to a per-symbol reference price.
	PnLModeReference PnLMode = "reference"
	// PnLModeRealized is sell and short-sell notional minus buy notional.
	PnLModeRealized PnLMode = "realized"
)

func ParsePnLMode(s string) (PnLMode, error) {
	switch PnLMode(s) {
	case "":
		return PnLModeReference, nil
	case PnLModeReference, PnLModeRealized:
		return PnLMode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPnLMode, s)
}

type PnL struct {
	Mode             PnLMode `json:"mode" yaml:"mode"`
	SymbolAmounts    `yaml:",inline"`
	MissingReference []string `json:"missing_reference,omitempty" yaml:"missing_reference,omitempty"`
}

// ReferencePnL: buy (ref - px) * qty, sell and short (px - ref) * qty.
// Symbols without a reference price are listed and skipped. Executions with
// an unknown side contribute nothing.
func ReferencePnL(execs []Execution, ref map[string]decimal.Decimal) PnL {
	out := PnL{
		Mode:          PnLModeReference,
		SymbolAmounts: SymbolAmounts{BySymbol: map[string]decimal.Decimal{}, Total: decimal.Zero},
	}
	missing := map[string]struct{}{}
	for _, e := range execs {
		price, ok := ref[e.Symbol]
		if !ok {
			missing[e.Symbol] = struct{}{}
			continue
		}
		var diff decimal.Decimal
		switch e.Side {
		case model.OrderSideBuy:
			diff = price.Sub(e.LastPx)
		case model.OrderSideSell, model.OrderSideSellShort:
			diff = e.LastPx.Sub(price)
		default:
			continue
		}
		out.BySymbol[e.Symbol] = out.BySymbol[e.Symbol].Add(diff.Mul(e.LastQty))
	}
	for _, v := range out.BySymbol {
		out.Total = out.Total.Add(v)
	}
	for s := range missing {
		out.MissingReference = append(out.MissingReference, s)
	}
	sort.Strings(out.MissingReference)
	return out
}

func RealizedPnL(execs []Execution) PnL {
	out := PnL{
		Mode:          PnLModeRealized,
		SymbolAmounts: SymbolAmounts{BySymbol: map[string]decimal.Decimal{}, Total: decimal.Zero},
	}
	for _, e := range execs {
		switch e.Side {
		case model.OrderSideBuy:
			out.BySymbol[e.Symbol] = out.BySymbol[e.Symbol].Sub(e.Notional())
		case model.OrderSideSell, model.OrderSideSellShort:
			out.BySymbol[e.Symbol] = out.BySymbol[e.Symbol].Add(e.Notional())
		}
	}
	for _, v := range out.BySymbol {
		out.Total = out.Total.Add(v)
	}
	return out
}
