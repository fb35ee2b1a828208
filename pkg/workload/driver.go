package workload

import (
	"context"
	"math/rand"
	"time"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine is the part of the capture engine the driver needs.
type Engine interface {
	OnOutboundNewOrder(req model.NewOrderRequest) (string, error)
	OnOutboundCancel(origCorrelationID string) (string, error)
	RandomOrderID(r *rand.Rand) (string, bool)
}

type Stats struct {
	Iterations   int `json:"iterations" yaml:"iterations"`
	OrdersSent   int `json:"orders_sent" yaml:"orders_sent"`
	CancelsSent  int `json:"cancels_sent" yaml:"cancels_sent"`
	OrderErrors  int `json:"order_errors" yaml:"order_errors"`
	CancelErrors int `json:"cancel_errors" yaml:"cancel_errors"`
}

func (s Stats) Failures() int {
	return s.OrderErrors + s.CancelErrors
}

type Driver struct {
	cfg    Config
	engine Engine
	rnd    *rand.Rand
	logger *zap.Logger
}

func NewDriver(cfg Config, engine Engine, logger *zap.Logger) (*Driver, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Driver{
		cfg:    cfg,
		engine: engine,
		rnd:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}, nil
}

// Run drives the configured number of iterations. A failed request is
// logged and counted; the loop keeps going. Cancelling ctx stops early and
// returns ctx.Err() with the statistics gathered so far.
func (d *Driver) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	var ticker *time.Ticker
	if d.cfg.Interval > 0 {
		ticker = time.NewTicker(d.cfg.Interval)
		defer ticker.Stop()
	}

	for i := 0; i < d.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Iterations++

		req := d.nextOrder()
		if _, err := d.engine.OnOutboundNewOrder(req); err != nil {
			stats.OrderErrors++
			d.logger.Warn("new order failed",
				zap.Int("iteration", i),
				zap.String("symbol", req.Symbol),
				zap.Error(err))
		} else {
			stats.OrdersSent++
		}

		if d.rnd.Float64() < d.cfg.cancelProbability() {
			if orig, ok := d.engine.RandomOrderID(d.rnd); ok {
				if _, err := d.engine.OnOutboundCancel(orig); err != nil {
					stats.CancelErrors++
					d.logger.Warn("cancel failed",
						zap.Int("iteration", i),
						zap.String("orig_cl_ord_id", orig),
						zap.Error(err))
				} else {
					stats.CancelsSent++
				}
			}
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-ticker.C:
			}
		}
	}

	d.logger.Info("workload finished",
		zap.Int("orders_sent", stats.OrdersSent),
		zap.Int("cancels_sent", stats.CancelsSent),
		zap.Int("failures", stats.Failures()))
	return stats, nil
}

func (d *Driver) nextOrder() model.NewOrderRequest {
	symbol := d.cfg.Symbols[d.rnd.Intn(len(d.cfg.Symbols))]
	req := model.NewOrderRequest{
		Side:      d.pickSide(),
		Symbol:    symbol,
		Quantity:  d.between(d.cfg.QuantityRange),
		Type:      d.cfg.OrderTypes[d.rnd.Intn(len(d.cfg.OrderTypes))],
		HandlInst: d.cfg.HandlInsts[d.rnd.Intn(len(d.cfg.HandlInsts))],
	}
	if req.Type == model.OrderTypeLimit {
		req.Price = decimal.NewNullDecimal(decimal.NewFromInt(d.between(d.cfg.PriceRanges[symbol])))
	}
	return req
}

func (d *Driver) pickSide() model.OrderSide {
	var total float64
	for _, w := range d.cfg.SideWeights {
		total += w.Weight
	}
	x := d.rnd.Float64() * total
	for _, w := range d.cfg.SideWeights {
		if x < w.Weight {
			return w.Side
		}
		x -= w.Weight
	}
	return d.cfg.SideWeights[len(d.cfg.SideWeights)-1].Side
}

// between draws uniformly from [r.Min, r.Max].
func (d *Driver) between(r Range) int64 {
	return r.Min + d.rnd.Int63n(r.Max-r.Min+1)
}
