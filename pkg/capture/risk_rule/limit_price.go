package riskrule

import (
	"fmt"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/shopspring/decimal"
)

type PriceBand struct {
	Floor decimal.Decimal `yaml:"floor"`
	Ceil  decimal.Decimal `yaml:"ceil"`
}

// LimitPriceRule rejects limit prices outside the configured band of their
// symbol. Symbols without a band and market orders pass.
type LimitPriceRule struct {
	bands map[string]PriceBand
}

func NewLimitPriceRule(bands map[string]PriceBand) *LimitPriceRule {
	return &LimitPriceRule{bands: bands}
}

func (r *LimitPriceRule) Check(req *model.NewOrderRequest) error {
	if !req.Price.Valid {
		return nil
	}
	band, ok := r.bands[req.Symbol]
	if !ok {
		return nil
	}
	if req.Price.Decimal.GreaterThan(band.Ceil) || req.Price.Decimal.LessThan(band.Floor) {
		return fmt.Errorf("price limit violation: %s %s not in [%s, %s]",
			req.Symbol, req.Price.Decimal, band.Floor, band.Ceil)
	}
	return nil
}
