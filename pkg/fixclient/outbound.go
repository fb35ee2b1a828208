package fixclient

import (
	"fmt"
	"time"

	"github.com/joripage/fixsim/pkg/capture"
	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix42nos "github.com/quickfixgo/fix42/newordersingle"
	fix42ocr "github.com/quickfixgo/fix42/ordercancelrequest"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	fix44ocr "github.com/quickfixgo/fix44/ordercancelrequest"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

// buildMessage renders an outbound message with the typed builders of the
// session's FIX version.
func buildMessage(beginString string, out *model.OutboundMessage) (quickfix.Messagable, error) {
	switch out.MsgType {
	case model.MsgTypeNewOrderSingle:
		return buildNewOrderSingle(beginString, out.Fields)
	case model.MsgTypeOrderCancelRequest:
		return buildOrderCancelRequest(beginString, out.Fields)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, out.MsgType)
}

func buildNewOrderSingle(beginString string, f model.Fields) (quickfix.Messagable, error) {
	clOrdID, err := required(f, model.TagClOrdID)
	if err != nil {
		return nil, err
	}
	transactTime, err := transactTime(f)
	if err != nil {
		return nil, err
	}
	qty, err := decimalField(f, model.TagOrderQty)
	if err != nil {
		return nil, err
	}
	side := enum.Side(f[model.TagSide])
	ordType := enum.OrdType(f[model.TagOrdType])

	switch beginString {
	case quickfix.BeginStringFIX42:
		msg := fix42nos.New(
			field.NewClOrdID(clOrdID),
			field.NewHandlInst(enum.HandlInst(f[model.TagHandlInst])),
			field.NewSymbol(f[model.TagSymbol]),
			field.NewSide(side),
			field.NewTransactTime(transactTime),
			field.NewOrdType(ordType))
		msg.SetOrderQty(qty, scale(qty))
		if px, ok, err := optionalDecimal(f, model.TagPrice); err != nil {
			return nil, err
		} else if ok {
			msg.SetPrice(px, scale(px))
		}
		msg.SetTimeInForce(enum.TimeInForce(f[model.TagTimeInForce]))
		msg.SetText(f[model.TagText])
		return msg, nil

	case quickfix.BeginStringFIX44:
		msg := fix44nos.New(
			field.NewClOrdID(clOrdID),
			field.NewSide(side),
			field.NewTransactTime(transactTime),
			field.NewOrdType(ordType))
		msg.SetSymbol(f[model.TagSymbol])
		msg.SetHandlInst(enum.HandlInst(f[model.TagHandlInst]))
		msg.SetOrderQty(qty, scale(qty))
		if px, ok, err := optionalDecimal(f, model.TagPrice); err != nil {
			return nil, err
		} else if ok {
			msg.SetPrice(px, scale(px))
		}
		msg.SetTimeInForce(enum.TimeInForce(f[model.TagTimeInForce]))
		msg.SetText(f[model.TagText])
		return msg, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedBegin, beginString)
}

func buildOrderCancelRequest(beginString string, f model.Fields) (quickfix.Messagable, error) {
	clOrdID, err := required(f, model.TagClOrdID)
	if err != nil {
		return nil, err
	}
	origClOrdID, err := required(f, model.TagOrigClOrdID)
	if err != nil {
		return nil, err
	}
	transactTime, err := transactTime(f)
	if err != nil {
		return nil, err
	}
	side := enum.Side(f[model.TagSide])

	switch beginString {
	case quickfix.BeginStringFIX42:
		msg := fix42ocr.New(
			field.NewOrigClOrdID(origClOrdID),
			field.NewClOrdID(clOrdID),
			field.NewSymbol(f[model.TagSymbol]),
			field.NewSide(side),
			field.NewTransactTime(transactTime))
		if qty, ok, err := optionalDecimal(f, model.TagOrderQty); err != nil {
			return nil, err
		} else if ok {
			msg.SetOrderQty(qty, scale(qty))
		}
		if orderID, ok := f.Get(model.TagOrderID); ok {
			msg.SetOrderID(orderID)
		}
		msg.SetText(f[model.TagText])
		return msg, nil

	case quickfix.BeginStringFIX44:
		msg := fix44ocr.New(
			field.NewOrigClOrdID(origClOrdID),
			field.NewClOrdID(clOrdID),
			field.NewSide(side),
			field.NewTransactTime(transactTime))
		msg.SetSymbol(f[model.TagSymbol])
		if qty, ok, err := optionalDecimal(f, model.TagOrderQty); err != nil {
			return nil, err
		} else if ok {
			msg.SetOrderQty(qty, scale(qty))
		}
		if orderID, ok := f.Get(model.TagOrderID); ok {
			msg.SetOrderID(orderID)
		}
		msg.SetText(f[model.TagText])
		return msg, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedBegin, beginString)
}

func required(f model.Fields, t model.Tag) (string, error) {
	v, ok := f.Get(t)
	if !ok {
		return "", fmt.Errorf("%w: %s(%d)", ErrMissingField, t.Name(), int(t))
	}
	return v, nil
}

func transactTime(f model.Fields) (time.Time, error) {
	v, err := required(f, model.TagTransactTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(capture.FixTimeLayout, v)
}

func decimalField(f model.Fields, t model.Tag) (decimal.Decimal, error) {
	v, err := required(f, t)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(v)
}

func optionalDecimal(f model.Fields, t model.Tag) (decimal.Decimal, bool, error) {
	v, ok := f.Get(t)
	if !ok {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("%s(%d): %w", t.Name(), int(t), err)
	}
	return d, true, nil
}

// scale is the number of decimal places needed to render d without loss.
func scale(d decimal.Decimal) int32 {
	if e := d.Exponent(); e < 0 {
		return -e
	}
	return 0
}
