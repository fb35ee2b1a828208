package analytics

import (
	"sort"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/quickfixgo/enum"
)

type CountKey struct {
	MessageType enum.MsgType    `json:"message_type" yaml:"message_type"`
	Symbol      string          `json:"symbol" yaml:"symbol"`
	Side        model.OrderSide `json:"side" yaml:"side"`
}

type CountRow struct {
	CountKey `yaml:",inline"`
	Count    int `json:"count" yaml:"count"`
}

type OrderCounts struct {
	Rows      []CountRow `json:"rows" yaml:"rows"`
	NewOrders int        `json:"new_orders" yaml:"new_orders"`
	Cancels   int        `json:"cancels" yaml:"cancels"`
}

// CountOrders groups sent records by message type, symbol and side. Rows are
// sorted for stable output.
func CountOrders(records []model.EventRecord) OrderCounts {
	counts := map[CountKey]int{}
	var out OrderCounts
	for _, rec := range records {
		if rec.Direction != model.DirectionSent {
			continue
		}
		side, ok := model.SideFromWire(rec.Fields[model.TagSide])
		if !ok {
			side = model.OrderSide(rec.Fields[model.TagSide])
		}
		counts[CountKey{MessageType: rec.MessageType, Symbol: rec.Symbol(), Side: side}]++

		switch rec.MessageType {
		case model.MsgTypeNewOrderSingle:
			out.NewOrders++
		case model.MsgTypeOrderCancelRequest:
			out.Cancels++
		}
	}

	out.Rows = make([]CountRow, 0, len(counts))
	for k, n := range counts {
		out.Rows = append(out.Rows, CountRow{CountKey: k, Count: n})
	}
	sort.Slice(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i], out.Rows[j]
		if a.MessageType != b.MessageType {
			return a.MessageType < b.MessageType
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Side < b.Side
	})
	return out
}
