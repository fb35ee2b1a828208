package analytics

import (
	"context"
	"time"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	PnLMode         PnLMode                    `yaml:"pnl_mode"`
	ReferencePrices map[string]decimal.Decimal `yaml:"reference_prices"`
}

type Report struct {
	SessionID   string                     `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	RunID       string                     `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	GeneratedAt time.Time                  `json:"generated_at" yaml:"generated_at"`
	Records     int                        `json:"records" yaml:"records"`
	Counts      OrderCounts                `json:"order_counts" yaml:"order_counts"`
	Executions  ExecutionStats             `json:"executions" yaml:"executions"`
	Volume      SymbolAmounts              `json:"traded_volume" yaml:"traded_volume"`
	PnL         PnL                        `json:"pnl" yaml:"pnl"`
	VWAP        map[string]decimal.Decimal `json:"vwap" yaml:"vwap"`
}

// Run computes every analytics pass over a closed record set. The passes
// only read records, so they run concurrently.
func Run(ctx context.Context, records []model.EventRecord, cfg Config) (*Report, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	mode, err := ParsePnLMode(string(cfg.PnLMode))
	if err != nil {
		return nil, err
	}

	report := &Report{GeneratedAt: time.Now().UTC(), Records: len(records)}
	execs, stats := Executions(records)
	report.Executions = stats

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.Counts = CountOrders(records)
		return ctx.Err()
	})
	g.Go(func() error {
		report.Volume = TradedVolume(execs)
		return ctx.Err()
	})
	g.Go(func() error {
		switch mode {
		case PnLModeRealized:
			report.PnL = RealizedPnL(execs)
		default:
			report.PnL = ReferencePnL(execs, cfg.ReferencePrices)
		}
		return ctx.Err()
	})
	g.Go(func() error {
		report.VWAP = VWAP(execs)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}
