package fixserver

import (
	"fmt"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix42er "github.com/quickfixgo/fix42/executionreport"
	fix42ocj "github.com/quickfixgo/fix42/ordercancelreject"
	fix44er "github.com/quickfixgo/fix44/executionreport"
	fix44ocj "github.com/quickfixgo/fix44/ordercancelreject"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

func execType(beginString string, status OrderStatus) enum.ExecType {
	switch status {
	case OrderStatusNew:
		return enum.ExecType_NEW
	case OrderStatusFilled:
		if beginString == quickfix.BeginStringFIX42 {
			return enum.ExecType_FILL
		}
		return enum.ExecType_TRADE
	case OrderStatusCanceled:
		return enum.ExecType_CANCELED
	}
	return enum.ExecType_REJECTED
}

func executionReport(beginString string, r Report) (quickfix.Messagable, error) {
	ordStatus := OrderStatusMapping[r.Status]
	switch beginString {
	case quickfix.BeginStringFIX42:
		msg := fix42er.New(
			field.NewOrderID(r.OrderID),
			field.NewExecID(r.ExecID),
			field.NewExecTransType(enum.ExecTransType_NEW),
			field.NewExecType(execType(beginString, r.Status)),
			field.NewOrdStatus(ordStatus),
			field.NewSymbol(r.Symbol),
			field.NewSide(r.Side),
			field.NewLeavesQty(r.LeavesQty, scale(r.LeavesQty)),
			field.NewCumQty(r.CumQty, scale(r.CumQty)),
			field.NewAvgPx(r.AvgPx, scale(r.AvgPx)),
		)
		msg.SetClOrdID(r.ClOrdID)
		if r.OrigClOrdID != "" {
			msg.SetOrigClOrdID(r.OrigClOrdID)
		}
		msg.SetOrdType(r.OrdType)
		msg.SetOrderQty(r.OrderQty, scale(r.OrderQty))
		if r.Price.Valid {
			msg.SetPrice(r.Price.Decimal, scale(r.Price.Decimal))
		}
		if r.Status == OrderStatusFilled {
			msg.SetLastPx(r.LastPx, scale(r.LastPx))
			msg.SetLastShares(r.LastQty, scale(r.LastQty))
		}
		if r.Text != "" {
			msg.SetText(r.Text)
		}
		msg.SetTransactTime(r.TransactTime)
		return msg, nil

	case quickfix.BeginStringFIX44:
		msg := fix44er.New(
			field.NewOrderID(r.OrderID),
			field.NewExecID(r.ExecID),
			field.NewExecType(execType(beginString, r.Status)),
			field.NewOrdStatus(ordStatus),
			field.NewSide(r.Side),
			field.NewLeavesQty(r.LeavesQty, scale(r.LeavesQty)),
			field.NewCumQty(r.CumQty, scale(r.CumQty)),
			field.NewAvgPx(r.AvgPx, scale(r.AvgPx)),
		)
		msg.SetSymbol(r.Symbol)
		msg.SetClOrdID(r.ClOrdID)
		if r.OrigClOrdID != "" {
			msg.SetOrigClOrdID(r.OrigClOrdID)
		}
		msg.SetOrdType(r.OrdType)
		msg.SetOrderQty(r.OrderQty, scale(r.OrderQty))
		if r.Price.Valid {
			msg.SetPrice(r.Price.Decimal, scale(r.Price.Decimal))
		}
		if r.Status == OrderStatusFilled {
			msg.SetLastPx(r.LastPx, scale(r.LastPx))
			msg.SetLastQty(r.LastQty, scale(r.LastQty))
		}
		if r.Text != "" {
			msg.SetText(r.Text)
		}
		msg.SetTransactTime(r.TransactTime)
		return msg, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedBegin, beginString)
}

func cancelReject(beginString string, r CancelReject) (quickfix.Messagable, error) {
	switch beginString {
	case quickfix.BeginStringFIX42:
		msg := fix42ocj.New(
			field.NewOrderID(r.OrderID),
			field.NewClOrdID(r.ClOrdID),
			field.NewOrigClOrdID(r.OrigClOrdID),
			field.NewOrdStatus(r.OrdStatus),
			field.NewCxlRejResponseTo(enum.CxlRejResponseTo_ORDER_CANCEL_REQUEST),
		)
		msg.SetCxlRejReason(r.Reason)
		msg.SetText(r.Text)
		return msg, nil

	case quickfix.BeginStringFIX44:
		msg := fix44ocj.New(
			field.NewOrderID(r.OrderID),
			field.NewClOrdID(r.ClOrdID),
			field.NewOrigClOrdID(r.OrigClOrdID),
			field.NewOrdStatus(r.OrdStatus),
			field.NewCxlRejResponseTo(enum.CxlRejResponseTo_ORDER_CANCEL_REQUEST),
		)
		msg.SetCxlRejReason(r.Reason)
		msg.SetText(r.Text)
		return msg, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedBegin, beginString)
}

func scale(d decimal.Decimal) int32 {
	if e := d.Exponent(); e < 0 {
		return -e
	}
	return 0
}
