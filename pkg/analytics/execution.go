package analytics

import (
	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/quickfixgo/enum"
	"github.com/shopspring/decimal"
)

// Execution is a qualifying execution report reduced to the values the
// analytics passes use.
type Execution struct {
	Symbol  string
	Side    model.OrderSide
	LastPx  decimal.Decimal
	LastQty decimal.Decimal
}

func (e Execution) Notional() decimal.Decimal {
	return e.LastPx.Mul(e.LastQty)
}

// ExecutionStats counts the data-quality decisions taken while reducing
// records to executions.
type ExecutionStats struct {
	Qualifying    int `json:"qualifying" yaml:"qualifying"`
	Rejected      int `json:"rejected" yaml:"rejected"`
	CoercedFields int `json:"coerced_fields" yaml:"coerced_fields"`
	Unattributed  int `json:"unattributed" yaml:"unattributed"`
	UnknownSide   int `json:"unknown_side" yaml:"unknown_side"`
}

// Qualifies reports whether a record is a received execution report that is
// neither a rejected order status nor a rejected exec type.
func Qualifies(rec model.EventRecord) bool {
	if rec.Direction != model.DirectionReceived || rec.MessageType != model.MsgTypeExecutionReport {
		return false
	}
	return rec.Fields[model.TagOrdStatus] != string(enum.OrdStatus_REJECTED) &&
		rec.Fields[model.TagExecType] != string(enum.ExecType_REJECTED)
}

// Executions reduces records to qualifying executions. Missing or malformed
// LastPx/LastQty become zero; records without a symbol are left out.
func Executions(records []model.EventRecord) ([]Execution, ExecutionStats) {
	var (
		out   []Execution
		stats ExecutionStats
	)
	for _, rec := range records {
		if rec.Direction != model.DirectionReceived || rec.MessageType != model.MsgTypeExecutionReport {
			continue
		}
		if !Qualifies(rec) {
			stats.Rejected++
			continue
		}

		px, ok := parseDecimal(rec.Fields, model.TagLastPx)
		if !ok {
			stats.CoercedFields++
		}
		qty, ok := parseDecimal(rec.Fields, model.TagLastQty)
		if !ok {
			stats.CoercedFields++
		}

		symbol := rec.Symbol()
		if symbol == "" {
			stats.Unattributed++
			continue
		}
		side, ok := model.SideFromWire(rec.Fields[model.TagSide])
		if !ok {
			stats.UnknownSide++
		}

		stats.Qualifying++
		out = append(out, Execution{Symbol: symbol, Side: side, LastPx: px, LastQty: qty})
	}
	return out, stats
}

func parseDecimal(f model.Fields, t model.Tag) (decimal.Decimal, bool) {
	v, ok := f.Get(t)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
