package capture

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/joripage/fixsim/pkg/capture/eventlog"
	"github.com/joripage/fixsim/pkg/capture/model"
	riskrule "github.com/joripage/fixsim/pkg/capture/risk_rule"
	"github.com/joripage/fixsim/pkg/capture/store"
	"github.com/quickfixgo/enum"
	"go.uber.org/zap"
)

// FixTimeLayout is the UTCTimestamp layout used for TransactTime values.
const FixTimeLayout = "20060102-15:04:05.000"

const (
	textNewOrderSingle     = "NewOrderSingle"
	textOrderCancelRequest = "OrderCancelRequest"
)

// Transport transmits outbound messages and reports the assigned MsgSeqNum
// (0 when the transport cannot tell).
type Transport interface {
	Send(msg *model.OutboundMessage) (int, error)
}

type EngineConfig struct {
	// IDWidth is the zero-padded correlation ID width, 8 by default. The
	// engine issues at most 10^IDWidth-1 IDs per run.
	IDWidth int
	Rules   []riskrule.RiskRule
}

// Engine converts protocol lifecycle signals into event records and order
// correlation store updates. It is the only writer of both.
type Engine struct {
	cfg       EngineConfig
	transport Transport
	orders    *store.OrderStore
	events    *eventlog.EventLog
	ids       *idGenerator
	connected atomic.Bool
	logger    *zap.Logger
	now       func() time.Time
}

func NewEngine(cfg EngineConfig, transport Transport, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		transport: transport,
		orders:    store.NewOrderStore(),
		events:    eventlog.NewEventLog(),
		ids:       newIDGenerator(cfg.IDWidth),
		logger:    logger,
		now:       time.Now,
	}
}

// SetTransport wires the transport after construction, for transports that
// need the engine as their inbound handler.
func (e *Engine) SetTransport(t Transport) {
	e.transport = t
}

func (e *Engine) Orders() *store.OrderStore {
	return e.orders
}

func (e *Engine) Events() *eventlog.EventLog {
	return e.events
}

func (e *Engine) Connected() bool {
	return e.connected.Load()
}

func (e *Engine) OnSessionUp() {
	e.connected.Store(true)
	e.logger.Info("session up")
}

func (e *Engine) OnSessionDown() {
	e.connected.Store(false)
	e.logger.Info("session down")
}

// RandomOrderID picks an existing correlation ID for a cancel.
func (e *Engine) RandomOrderID(r *rand.Rand) (string, bool) {
	return e.orders.RandomID(r)
}

// OnOutboundNewOrder creates, stores, sends and records a new order.
func (e *Engine) OnOutboundNewOrder(req model.NewOrderRequest) (string, error) {
	if err := e.validate(&req); err != nil {
		return "", err
	}
	if e.transport == nil {
		return "", ErrNoTransport
	}

	id, err := e.ids.next()
	if err != nil {
		return "", err
	}
	now := e.now().UTC()
	order := &model.Order{
		CorrelationID: id,
		Side:          req.Side,
		Symbol:        req.Symbol,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Type:          req.Type,
		HandlInst:     req.HandlInst,
		SubmitTime:    now,
	}
	if err := e.orders.Put(order); err != nil {
		return "", fmt.Errorf("store order %s: %w", order.CorrelationID, err)
	}

	fields := model.Fields{}
	fields.Set(model.TagClOrdID, order.CorrelationID)
	fields.Set(model.TagSide, string(model.SideMapping[order.Side]))
	fields.Set(model.TagSymbol, order.Symbol)
	fields.Set(model.TagOrderQty, strconv.FormatInt(order.Quantity, 10))
	if order.Type == model.OrderTypeLimit {
		fields.Set(model.TagPrice, order.Price.Decimal.String())
	}
	fields.Set(model.TagOrdType, string(model.OrderTypeMapping[order.Type]))
	fields.Set(model.TagHandlInst, string(order.HandlInst))
	fields.Set(model.TagTimeInForce, string(enum.TimeInForce_DAY))
	fields.Set(model.TagText, textNewOrderSingle)
	fields.Set(model.TagTransactTime, order.SubmitTime.Format(FixTimeLayout))

	if err := e.send(model.MsgTypeNewOrderSingle, fields, now); err != nil {
		return "", fmt.Errorf("send new order %s: %w", order.CorrelationID, err)
	}

	e.logger.Debug("new order sent",
		zap.String("cl_ord_id", order.CorrelationID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)))
	return order.CorrelationID, nil
}

// OnOutboundCancel sends a cancel for a known order. Membership in the store
// is the only condition; the original order is left untouched.
func (e *Engine) OnOutboundCancel(origCorrelationID string) (string, error) {
	order, ok := e.orders.Get(origCorrelationID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownOrder, origCorrelationID)
	}
	if e.transport == nil {
		return "", ErrNoTransport
	}

	id, err := e.ids.next()
	if err != nil {
		return "", err
	}
	fields := model.Fields{}
	fields.Set(model.TagClOrdID, id)
	fields.Set(model.TagOrigClOrdID, order.CorrelationID)
	fields.Set(model.TagSide, string(model.SideMapping[order.Side]))
	fields.Set(model.TagSymbol, order.Symbol)
	fields.Set(model.TagOrderQty, strconv.FormatInt(order.Quantity, 10))
	fields.Set(model.TagText, textOrderCancelRequest)
	fields.Set(model.TagTransactTime, order.SubmitTime.Format(FixTimeLayout))
	fields.Set(model.TagOrderID, order.VenueOrderID)

	if err := e.send(model.MsgTypeOrderCancelRequest, fields, e.now().UTC()); err != nil {
		return "", fmt.Errorf("send cancel %s for %s: %w", id, origCorrelationID, err)
	}

	e.logger.Debug("cancel sent",
		zap.String("cl_ord_id", id),
		zap.String("orig_cl_ord_id", origCorrelationID))
	return id, nil
}

func (e *Engine) send(msgType enum.MsgType, fields model.Fields, sentAt time.Time) error {
	seqNum, err := e.transport.Send(&model.OutboundMessage{MsgType: msgType, Fields: fields})
	if err != nil {
		return err
	}

	_, err = e.events.Append(model.EventRecord{
		Direction:      model.DirectionSent,
		MessageType:    msgType,
		SequenceNumber: seqNum,
		SendingTime:    sentAt,
		Fields:         fields,
	})
	return err
}

// OnInboundExecutionReport records the report and learns the venue order ID
// on first acknowledgement.
func (e *Engine) OnInboundExecutionReport(msg *model.InboundMessage) error {
	fields := extract(msg.Fields, executionReportTags)
	if err := e.receive(model.MsgTypeExecutionReport, msg, fields); err != nil {
		return err
	}

	clOrdID := fields[model.TagClOrdID]
	venueOrderID, ok := fields[model.TagOrderID]
	if clOrdID == "" || !ok {
		return nil
	}
	set, err := e.orders.SetVenueOrderID(clOrdID, venueOrderID)
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		e.logger.Debug("execution report for unknown order", zap.String("cl_ord_id", clOrdID))
	case set:
		e.logger.Debug("venue order id learned",
			zap.String("cl_ord_id", clOrdID),
			zap.String("order_id", venueOrderID))
	}

	e.logger.Debug("execution report received",
		zap.String("cl_ord_id", clOrdID),
		zap.String("ord_status", fields[model.TagOrdStatus]))
	return nil
}

func (e *Engine) OnInboundCancelReject(msg *model.InboundMessage) error {
	fields := extract(msg.Fields, cancelRejectTags)
	if err := e.receive(model.MsgTypeOrderCancelReject, msg, fields); err != nil {
		return err
	}

	e.logger.Debug("order cancel reject received",
		zap.String("cl_ord_id", fields[model.TagClOrdID]),
		zap.String("text", fields[model.TagText]))
	return nil
}

func (e *Engine) OnInboundSessionReject(msg *model.InboundMessage) error {
	fields := extract(msg.Fields, sessionRejectTags)
	if err := e.receive(model.MsgTypeReject, msg, fields); err != nil {
		return err
	}

	e.logger.Debug("session reject received",
		zap.String("cl_ord_id", fields[model.TagClOrdID]),
		zap.String("text", fields[model.TagText]))
	return nil
}

func (e *Engine) receive(msgType enum.MsgType, msg *model.InboundMessage, fields model.Fields) error {
	_, err := e.events.Append(model.EventRecord{
		Direction:      model.DirectionReceived,
		MessageType:    msgType,
		SequenceNumber: msg.SeqNum,
		SendingTime:    msg.SendingTime.UTC(),
		Fields:         fields,
	})
	if err != nil {
		e.logger.Warn("drop inbound message",
			zap.String("msg_type", string(msgType)),
			zap.Int("seq_num", msg.SeqNum),
			zap.Error(err))
	}
	return err
}

// Close ends capture. The event log rejects appends afterwards.
func (e *Engine) Close() {
	e.events.Close()
}

func (e *Engine) validate(req *model.NewOrderRequest) error {
	if req.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidOrderSpec)
	}
	if _, ok := model.SideMapping[req.Side]; !ok {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrderSpec, req.Side)
	}
	if req.Quantity <= 0 {
		return fmt.Errorf("%w: quantity %d", ErrInvalidOrderSpec, req.Quantity)
	}
	switch req.Type {
	case model.OrderTypeLimit:
		if !req.Price.Valid || !req.Price.Decimal.IsPositive() {
			return fmt.Errorf("%w: limit order needs a positive price", ErrInvalidOrderSpec)
		}
	case model.OrderTypeMarket:
		if req.Price.Valid {
			return fmt.Errorf("%w: market order must not carry a price", ErrInvalidOrderSpec)
		}
	default:
		return fmt.Errorf("%w: unknown order type %q", ErrInvalidOrderSpec, req.Type)
	}
	if req.HandlInst == "" {
		req.HandlInst = enum.HandlInst_AUTOMATED_EXECUTION_ORDER_PRIVATE_NO_BROKER_INTERVENTION
	}

	for _, rule := range e.cfg.Rules {
		if err := rule.Check(req); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOrderSpec, err)
		}
	}
	return nil
}
