package fixserver

import (
	"context"
	"fmt"
	"sync"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Handler is the client side a Loopback delivers to.
type Handler interface {
	OnSessionUp()
	OnSessionDown()
	OnInboundExecutionReport(msg *model.InboundMessage) error
	OnInboundCancelReject(msg *model.InboundMessage) error
}

const loopbackQueueSize = 4096

// Loopback connects a client handler straight to a Venue without a FIX
// session. Replies are delivered in order on one goroutine, like an
// initiator's reader.
type Loopback struct {
	venue   *Venue
	handler Handler
	logger  *zap.Logger

	mu     sync.Mutex
	up     bool
	outSeq int
	inSeq  int
	inbox  chan *model.InboundMessage
	done   chan struct{}
}

func NewLoopback(venue *Venue, handler Handler, logger *zap.Logger) *Loopback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loopback{venue: venue, handler: handler, logger: logger}
}

func (l *Loopback) Start() error {
	l.mu.Lock()
	if l.up {
		l.mu.Unlock()
		return nil
	}
	l.up = true
	l.inbox = make(chan *model.InboundMessage, loopbackQueueSize)
	l.done = make(chan struct{})
	l.mu.Unlock()

	go l.deliver()
	l.handler.OnSessionUp()
	return nil
}

func (l *Loopback) WaitLogon(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.up {
		return ErrSessionDown
	}
	return nil
}

// Send hands the message to the venue and queues its replies.
func (l *Loopback) Send(out *model.OutboundMessage) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.up {
		return 0, ErrSessionDown
	}

	switch out.MsgType {
	case model.MsgTypeNewOrderSingle:
		l.outSeq++
		for _, r := range l.venue.OnNewOrder(newOrderFromFields(out.Fields)) {
			l.push(model.MsgTypeExecutionReport, reportFields(r))
		}
	case model.MsgTypeOrderCancelRequest:
		l.outSeq++
		report, rej := l.venue.OnCancel(cancelFromFields(out.Fields))
		if rej != nil {
			l.push(model.MsgTypeOrderCancelReject, cancelRejectFields(*rej))
		} else {
			l.push(model.MsgTypeExecutionReport, reportFields(*report))
		}
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, out.MsgType)
	}
	return l.outSeq, nil
}

func (l *Loopback) SessionName() string {
	return "LOOPBACK"
}

// Stop delivers what is queued, then reports the session down.
func (l *Loopback) Stop() {
	l.mu.Lock()
	if !l.up {
		l.mu.Unlock()
		return
	}
	l.up = false
	close(l.inbox)
	done := l.done
	l.mu.Unlock()

	<-done
	l.handler.OnSessionDown()
}

// push must be called with mu held.
func (l *Loopback) push(msgType enum.MsgType, fields model.Fields) {
	l.inSeq++
	l.inbox <- &model.InboundMessage{
		MsgType:     msgType,
		SeqNum:      l.inSeq,
		SendingTime: l.venue.now().UTC(),
		Fields:      fields,
	}
}

func (l *Loopback) deliver() {
	defer close(l.done)
	for msg := range l.inbox {
		var err error
		switch msg.MsgType {
		case model.MsgTypeExecutionReport:
			err = l.handler.OnInboundExecutionReport(msg)
		case model.MsgTypeOrderCancelReject:
			err = l.handler.OnInboundCancelReject(msg)
		}
		if err != nil {
			l.logger.Warn("loopback delivery failed",
				zap.String("msg_type", string(msg.MsgType)),
				zap.Int("seq_num", msg.SeqNum),
				zap.Error(err))
		}
	}
}

func newOrderFromFields(f model.Fields) NewOrder {
	req := NewOrder{
		ClOrdID: f[model.TagClOrdID],
		Symbol:  f[model.TagSymbol],
		Side:    enum.Side(f[model.TagSide]),
		OrdType: enum.OrdType(f[model.TagOrdType]),
	}
	req.Quantity, _ = decimal.NewFromString(f[model.TagOrderQty])
	if v, ok := f.Get(model.TagPrice); ok {
		if px, err := decimal.NewFromString(v); err == nil {
			req.Price = decimal.NewNullDecimal(px)
		}
	}
	return req
}

func cancelFromFields(f model.Fields) CancelOrder {
	return CancelOrder{
		ClOrdID:     f[model.TagClOrdID],
		OrigClOrdID: f[model.TagOrigClOrdID],
		OrderID:     f[model.TagOrderID],
		Symbol:      f[model.TagSymbol],
		Side:        enum.Side(f[model.TagSide]),
	}
}

func reportFields(r Report) model.Fields {
	f := model.Fields{}
	f.Set(model.TagClOrdID, r.ClOrdID)
	f.Set(model.TagOrigClOrdID, r.OrigClOrdID)
	f.Set(model.TagOrderID, r.OrderID)
	f.Set(model.TagOrdStatus, string(OrderStatusMapping[r.Status]))
	f.Set(model.TagExecType, string(execType(quickfix.BeginStringFIX44, r.Status)))
	f.Set(model.TagSide, string(r.Side))
	f.Set(model.TagSymbol, r.Symbol)
	f.Set(model.TagOrdType, string(r.OrdType))
	f.Set(model.TagText, r.Text)
	f.Set(model.TagOrderQty, r.OrderQty.String())
	if r.Price.Valid {
		f.Set(model.TagPrice, r.Price.Decimal.String())
	}
	if r.Status == OrderStatusFilled {
		f.Set(model.TagLastPx, r.LastPx.String())
		f.Set(model.TagLastQty, r.LastQty.String())
	}
	return f
}

func cancelRejectFields(r CancelReject) model.Fields {
	f := model.Fields{}
	f.Set(model.TagClOrdID, r.ClOrdID)
	f.Set(model.TagOrderID, r.OrderID)
	f.Set(model.TagOrdStatus, string(r.OrdStatus))
	f.Set(model.TagOrigClOrdID, r.OrigClOrdID)
	f.Set(model.TagText, r.Text)
	return f
}
