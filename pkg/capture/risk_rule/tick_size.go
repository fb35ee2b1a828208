package riskrule

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/shopspring/decimal"
)

type tickSizeConfig struct {
	MaxPrice decimal.Decimal `json:"maxPrice"` // 0 = no limit
	Step     decimal.Decimal `json:"step"`
}

// TickSizeRule holds per-symbol tick ladders.
type TickSizeRule struct {
	Config map[string][]tickSizeConfig
}

// NewTickSizeRuleFromFile loads a JSON ladder file:
// {"MSFT": [{"maxPrice": "100", "step": "0.01"}, {"maxPrice": "0", "step": "0.05"}]}
func NewTickSizeRuleFromFile(path string) (*TickSizeRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg map[string][]tickSizeConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &TickSizeRule{Config: cfg}, nil
}

func (r *TickSizeRule) Check(req *model.NewOrderRequest) error {
	if !req.Price.Valid {
		return nil
	}
	rules, ok := r.Config[req.Symbol]
	if !ok { // no config -> no rule
		return nil
	}

	price := req.Price.Decimal
	for _, rule := range rules {
		if rule.MaxPrice.IsZero() || price.LessThanOrEqual(rule.MaxPrice) {
			if rule.Step.IsPositive() && !price.Mod(rule.Step).IsZero() {
				return fmt.Errorf("invalid tick size: %s step %s", price, rule.Step)
			}
			return nil
		}
	}

	return nil
}
