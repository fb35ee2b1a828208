package fixserver

import (
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/quickfixgo/enum"
	"github.com/shopspring/decimal"
)

// VenueConfig drives the simulated matching decisions.
type VenueConfig struct {
	ReferencePrices   map[string]decimal.Decimal `yaml:"reference_prices"`
	RejectProbability float64                    `yaml:"reject_probability"`
	Seed              int64                      `yaml:"seed"`
}

type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusCanceled OrderStatus = "CANCELED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

var OrderStatusMapping = map[OrderStatus]enum.OrdStatus{
	OrderStatusNew:      enum.OrdStatus_NEW,
	OrderStatusFilled:   enum.OrdStatus_FILLED,
	OrderStatusCanceled: enum.OrdStatus_CANCELED,
	OrderStatusRejected: enum.OrdStatus_REJECTED,
}

type NewOrder struct {
	ClOrdID  string
	Symbol   string
	Side     enum.Side
	OrdType  enum.OrdType
	Quantity decimal.Decimal
	Price    decimal.NullDecimal
}

type CancelOrder struct {
	ClOrdID     string
	OrigClOrdID string
	OrderID     string
	Symbol      string
	Side        enum.Side
}

// Report is one execution report the venue owes the client.
type Report struct {
	OrderID      string
	ExecID       string
	ClOrdID      string
	OrigClOrdID  string
	Symbol       string
	Side         enum.Side
	OrdType      enum.OrdType
	Status       OrderStatus
	OrderQty     decimal.Decimal
	Price        decimal.NullDecimal
	LastPx       decimal.Decimal
	LastQty      decimal.Decimal
	LeavesQty    decimal.Decimal
	CumQty       decimal.Decimal
	AvgPx        decimal.Decimal
	Text         string
	TransactTime time.Time
}

type CancelReject struct {
	OrderID     string
	ClOrdID     string
	OrigClOrdID string
	OrdStatus   enum.OrdStatus
	Reason      enum.CxlRejReason
	Text        string
}

type venueOrder struct {
	orderID string
	req     NewOrder
	status  OrderStatus
}

// Venue acks every order, fills market orders at the symbol's reference
// price and marketable limits at their limit, and rests everything else
// until cancelled. Resting orders never trade later.
type Venue struct {
	cfg VenueConfig

	mu      sync.Mutex
	rnd     *rand.Rand
	entropy io.Reader
	orders  map[string]*venueOrder // by ClOrdID
	now     func() time.Time
}

func NewVenue(cfg VenueConfig) *Venue {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Venue{
		cfg:     cfg,
		rnd:     rand.New(rand.NewSource(seed)),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed+1)), 0),
		orders:  make(map[string]*venueOrder),
		now:     time.Now,
	}
}

// OnNewOrder returns the reports for a new order in sending order.
func (v *Venue) OnNewOrder(req NewOrder) []Report {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now().UTC()
	order := &venueOrder{orderID: v.nextID(now), req: req, status: OrderStatusNew}
	base := Report{
		OrderID:      order.orderID,
		ClOrdID:      req.ClOrdID,
		Symbol:       req.Symbol,
		Side:         req.Side,
		OrdType:      req.OrdType,
		OrderQty:     req.Quantity,
		Price:        req.Price,
		TransactTime: now,
	}

	if reason := v.rejectReason(req); reason != "" {
		order.status = OrderStatusRejected
		v.orders[req.ClOrdID] = order
		return []Report{v.reject(base, reason)}
	}

	ack := base
	ack.ExecID = v.nextID(now)
	ack.Status = OrderStatusNew
	ack.LeavesQty = req.Quantity
	reports := []Report{ack}

	if px, ok := v.fillPrice(req); ok {
		fill := base
		fill.ExecID = v.nextID(now)
		fill.Status = OrderStatusFilled
		fill.LastPx = px
		fill.LastQty = req.Quantity
		fill.CumQty = req.Quantity
		fill.AvgPx = px
		order.status = OrderStatusFilled
		reports = append(reports, fill)
	}
	v.orders[req.ClOrdID] = order
	return reports
}

// OnCancel cancels a resting order. Anything else is answered with an
// OrderCancelReject.
func (v *Venue) OnCancel(req CancelOrder) (*Report, *CancelReject) {
	v.mu.Lock()
	defer v.mu.Unlock()

	order, ok := v.orders[req.OrigClOrdID]
	if !ok {
		return nil, &CancelReject{
			OrderID:     "NONE",
			ClOrdID:     req.ClOrdID,
			OrigClOrdID: req.OrigClOrdID,
			OrdStatus:   enum.OrdStatus_REJECTED,
			Reason:      enum.CxlRejReason_UNKNOWN_ORDER,
			Text:        ErrUnknownOrder.Error(),
		}
	}
	if order.status != OrderStatusNew {
		return nil, &CancelReject{
			OrderID:     order.orderID,
			ClOrdID:     req.ClOrdID,
			OrigClOrdID: req.OrigClOrdID,
			OrdStatus:   OrderStatusMapping[order.status],
			Reason:      enum.CxlRejReason_TOO_LATE_TO_CANCEL,
			Text:        fmt.Sprintf("%s: order is %s", ErrTooLateToCancel, order.status),
		}
	}

	now := v.now().UTC()
	order.status = OrderStatusCanceled
	return &Report{
		OrderID:      order.orderID,
		ExecID:       v.nextID(now),
		ClOrdID:      req.ClOrdID,
		OrigClOrdID:  req.OrigClOrdID,
		Symbol:       order.req.Symbol,
		Side:         order.req.Side,
		OrdType:      order.req.OrdType,
		Status:       OrderStatusCanceled,
		OrderQty:     order.req.Quantity,
		Price:        order.req.Price,
		TransactTime: now,
	}, nil
}

// Resting counts orders still open on the venue.
func (v *Venue) Resting() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, o := range v.orders {
		if o.status == OrderStatusNew {
			n++
		}
	}
	return n
}

func (v *Venue) rejectReason(req NewOrder) string {
	switch {
	case req.Symbol == "":
		return "missing symbol"
	case !req.Quantity.IsPositive():
		return "quantity must be positive"
	case req.OrdType == enum.OrdType_LIMIT && !req.Price.Valid:
		return "limit order without price"
	case req.OrdType != enum.OrdType_LIMIT && req.OrdType != enum.OrdType_MARKET:
		return fmt.Sprintf("unsupported order type %s", req.OrdType)
	}
	if _, dup := v.orders[req.ClOrdID]; dup {
		return "duplicate ClOrdID"
	}
	if req.OrdType == enum.OrdType_MARKET {
		if _, ok := v.cfg.ReferencePrices[req.Symbol]; !ok {
			return fmt.Sprintf("no reference price for %s", req.Symbol)
		}
	}
	if v.cfg.RejectProbability > 0 && v.rnd.Float64() < v.cfg.RejectProbability {
		return "simulated reject"
	}
	return ""
}

func (v *Venue) fillPrice(req NewOrder) (decimal.Decimal, bool) {
	ref, ok := v.cfg.ReferencePrices[req.Symbol]
	if req.OrdType == enum.OrdType_MARKET {
		return ref, ok
	}
	if !ok {
		return decimal.Zero, false
	}
	limit := req.Price.Decimal
	if req.Side == enum.Side_BUY && limit.GreaterThanOrEqual(ref) {
		return limit, true
	}
	if req.Side != enum.Side_BUY && limit.LessThanOrEqual(ref) {
		return limit, true
	}
	return decimal.Zero, false
}

func (v *Venue) reject(base Report, reason string) Report {
	base.ExecID = v.nextID(base.TransactTime)
	base.Status = OrderStatusRejected
	base.Text = reason
	return base
}

// nextID must be called with mu held; the monotonic entropy source is not
// safe for concurrent use.
func (v *Venue) nextID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), v.entropy).String()
}
