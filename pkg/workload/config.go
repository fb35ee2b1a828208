package workload

import (
	"fmt"
	"time"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/quickfixgo/enum"
)

type Range struct {
	Min int64 `yaml:"min"`
	Max int64 `yaml:"max"`
}

type SideWeight struct {
	Side   model.OrderSide `yaml:"side"`
	Weight float64         `yaml:"weight"`
}

type Config struct {
	Iterations        int               `yaml:"iterations"`
	CancelProbability *float64          `yaml:"cancel_probability"`
	Symbols           []string          `yaml:"symbols"`
	PriceRanges       map[string]Range  `yaml:"price_ranges"`
	QuantityRange     Range             `yaml:"quantity_range"`
	SideWeights       []SideWeight      `yaml:"side_weights"`
	OrderTypes        []model.OrderType `yaml:"order_types"`
	HandlInsts        []enum.HandlInst  `yaml:"handl_insts"`
	Interval          time.Duration     `yaml:"interval"`
	Seed              int64             `yaml:"seed"`
}

// Probability returns p as an explicit setting; a nil probability means
// "use the default".
func Probability(p float64) *float64 {
	return &p
}

func DefaultConfig() Config {
	return Config{
		Iterations:        1000,
		CancelProbability: Probability(0.05),
		Symbols:           []string{"MSFT", "BAC", "AAPL"},
		PriceRanges: map[string]Range{
			"MSFT": {Min: 100, Max: 400},
			"BAC":  {Min: 1, Max: 100},
			"AAPL": {Min: 100, Max: 300},
		},
		QuantityRange: Range{Min: 1, Max: 10000},
		SideWeights: []SideWeight{
			{Side: model.OrderSideBuy, Weight: 0.4},
			{Side: model.OrderSideSell, Weight: 0.3},
			{Side: model.OrderSideSellShort, Weight: 0.3},
		},
		OrderTypes: []model.OrderType{model.OrderTypeMarket, model.OrderTypeLimit},
		HandlInsts: []enum.HandlInst{
			enum.HandlInst_AUTOMATED_EXECUTION_ORDER_PRIVATE_NO_BROKER_INTERVENTION,
			enum.HandlInst_AUTOMATED_EXECUTION_ORDER_PUBLIC_BROKER_INTERVENTION_OK,
		},
	}
}

// WithDefaults fills every zero-valued knob from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Iterations == 0 {
		c.Iterations = d.Iterations
	}
	if c.CancelProbability == nil {
		c.CancelProbability = d.CancelProbability
	}
	if len(c.Symbols) == 0 {
		c.Symbols = d.Symbols
	}
	if len(c.PriceRanges) == 0 {
		c.PriceRanges = d.PriceRanges
	}
	if c.QuantityRange == (Range{}) {
		c.QuantityRange = d.QuantityRange
	}
	if len(c.SideWeights) == 0 {
		c.SideWeights = d.SideWeights
	}
	if len(c.OrderTypes) == 0 {
		c.OrderTypes = d.OrderTypes
	}
	if len(c.HandlInsts) == 0 {
		c.HandlInsts = d.HandlInsts
	}
	return c
}

func (c Config) Validate() error {
	if c.Iterations < 0 {
		return fmt.Errorf("%w: iterations %d", ErrInvalidConfig, c.Iterations)
	}
	if p := c.cancelProbability(); p < 0 || p > 1 {
		return fmt.Errorf("%w: cancel probability %v", ErrInvalidConfig, p)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("%w: no symbols", ErrInvalidConfig)
	}
	for _, s := range c.Symbols {
		r, ok := c.PriceRanges[s]
		if !ok {
			return fmt.Errorf("%w: no price range for %s", ErrInvalidConfig, s)
		}
		if r.Min <= 0 || r.Max < r.Min {
			return fmt.Errorf("%w: price range %d-%d for %s", ErrInvalidConfig, r.Min, r.Max, s)
		}
	}
	if c.QuantityRange.Min <= 0 || c.QuantityRange.Max < c.QuantityRange.Min {
		return fmt.Errorf("%w: quantity range %d-%d", ErrInvalidConfig, c.QuantityRange.Min, c.QuantityRange.Max)
	}
	var total float64
	for _, w := range c.SideWeights {
		if w.Weight < 0 {
			return fmt.Errorf("%w: negative weight for %s", ErrInvalidConfig, w.Side)
		}
		total += w.Weight
	}
	if total <= 0 {
		return fmt.Errorf("%w: side weights sum to zero", ErrInvalidConfig)
	}
	if len(c.OrderTypes) == 0 || len(c.HandlInsts) == 0 {
		return fmt.Errorf("%w: order types and handling instructions are required", ErrInvalidConfig)
	}
	return nil
}

func (c Config) cancelProbability() float64 {
	if c.CancelProbability == nil {
		return 0
	}
	return *c.CancelProbability
}
