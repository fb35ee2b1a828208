package model

import (
	"time"

	"github.com/quickfixgo/enum"
	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy       OrderSide = "BUY"
	OrderSideSell      OrderSide = "SELL"
	OrderSideSellShort OrderSide = "SHORT"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

var (
	SideMapping = map[OrderSide]enum.Side{
		OrderSideBuy:       enum.Side_BUY,
		OrderSideSell:      enum.Side_SELL,
		OrderSideSellShort: enum.Side_SELL_SHORT,
	}

	OrderTypeMapping = map[OrderType]enum.OrdType{
		OrderTypeMarket: enum.OrdType_MARKET,
		OrderTypeLimit:  enum.OrdType_LIMIT,
	}
)

// SideFromWire maps a FIX Side (54) value back to an OrderSide.
func SideFromWire(v string) (OrderSide, bool) {
	for side, wire := range SideMapping {
		if string(wire) == v {
			return side, true
		}
	}
	return "", false
}

func OrderTypeFromWire(v string) (OrderType, bool) {
	for t, wire := range OrderTypeMapping {
		if string(wire) == v {
			return t, true
		}
	}
	return "", false
}

// NewOrderRequest carries the caller-chosen parameters of a new order.
// Price must be valid only for limit orders.
type NewOrderRequest struct {
	Side      OrderSide
	Symbol    string
	Quantity  int64
	Price     decimal.NullDecimal
	Type      OrderType
	HandlInst enum.HandlInst
}

// Order is one originated order. VenueOrderID is the only field mutated
// after creation.
type Order struct {
	CorrelationID string
	Side          OrderSide
	Symbol        string
	Quantity      int64
	Price         decimal.NullDecimal
	Type          OrderType
	HandlInst     enum.HandlInst
	SubmitTime    time.Time
	VenueOrderID  string
}

func (o *Order) HasVenueOrderID() bool {
	return o.VenueOrderID != ""
}
