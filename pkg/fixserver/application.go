package fixserver

import (
	"github.com/joripage/go_util/pkg/shardqueue"
	"github.com/quickfixgo/enum"
	fix42nos "github.com/quickfixgo/fix42/newordersingle"
	fix42ocr "github.com/quickfixgo/fix42/ordercancelrequest"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	fix44ocr "github.com/quickfixgo/fix44/ordercancelrequest"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Application implements the quickfix.Application interface
type Application struct {
	*quickfix.MessageRouter
	cfg        AppConfig
	venue      *Venue
	logger     *zap.Logger
	dispatcher chan *inboundMsg
	shardQueue *shardqueue.Shardqueue
	send       func(m quickfix.Messagable, sessionID quickfix.SessionID) error
}

type AppConfig struct {
	EnableQueue      bool `yaml:"enable_queue"`
	EnableShardQueue bool `yaml:"enable_shard_queue"`
}

type inboundMsg struct {
	msg       *quickfix.Message
	sessionID quickfix.SessionID
}

const (
	numShards = 16
	queueSize = 100_000
)

func newApplication(cfg AppConfig, venue *Venue, logger *zap.Logger) *Application {
	app := &Application{
		MessageRouter: quickfix.NewMessageRouter(),
		cfg:           cfg,
		venue:         venue,
		logger:        logger,
		send:          quickfix.SendToTarget,
	}

	app.AddRoute(fix42nos.Route(func(msg fix42nos.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
		return app.onNewOrderSingle(msg.Message, sessionID)
	}))
	app.AddRoute(fix44nos.Route(func(msg fix44nos.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
		return app.onNewOrderSingle(msg.Message, sessionID)
	}))
	app.AddRoute(fix42ocr.Route(func(msg fix42ocr.OrderCancelRequest, sessionID quickfix.SessionID) quickfix.MessageRejectError {
		return app.onOrderCancelRequest(msg.Message, sessionID)
	}))
	app.AddRoute(fix44ocr.Route(func(msg fix44ocr.OrderCancelRequest, sessionID quickfix.SessionID) quickfix.MessageRejectError {
		return app.onOrderCancelRequest(msg.Message, sessionID)
	}))

	if app.cfg.EnableShardQueue {
		app.shardQueue = shardqueue.NewShardQueue(numShards, queueSize)
		app.shardQueue.Start(func(msg interface{}) error {
			if v, ok := msg.(*inboundMsg); ok {
				app.route(v.msg, v.sessionID)
			}
			return nil
		})
	} else if app.cfg.EnableQueue {
		app.dispatcher = make(chan *inboundMsg, queueSize)
		go app.runDispatcher()
	}

	return app
}

// OnCreate implemented as part of Application interface
func (a *Application) OnCreate(sessionID quickfix.SessionID) {}

// OnLogon implemented as part of Application interface
func (a *Application) OnLogon(sessionID quickfix.SessionID) {
	a.logger.Info("client logged on", zap.String("session_id", sessionID.String()))
}

// OnLogout implemented as part of Application interface
func (a *Application) OnLogout(sessionID quickfix.SessionID) {
	a.logger.Info("client logged out",
		zap.String("session_id", sessionID.String()),
		zap.Int("resting", a.venue.Resting()))
}

// ToAdmin implemented as part of Application interface
func (a *Application) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}

// ToApp implemented as part of Application interface
func (a *Application) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}

// FromAdmin implemented as part of Application interface
func (a *Application) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

// FromApp implemented as part of Application interface, uses Router on incoming application messages
func (a *Application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) (reject quickfix.MessageRejectError) {
	if a.cfg.EnableShardQueue {
		a.shardQueue.Shard(getRoutingKey(msg, sessionID), &inboundMsg{msg, sessionID})
		return nil
	} else if a.cfg.EnableQueue {
		a.dispatcher <- &inboundMsg{msg, sessionID}
		return nil
	}

	return a.Route(msg, sessionID)
}

// Cancels are keyed by the original order so they stay behind it on one shard.
func getRoutingKey(msg *quickfix.Message, sessionID quickfix.SessionID) string {
	if orig, err := msg.Body.GetString(tag.OrigClOrdID); err == nil && orig != "" {
		return orig
	}
	if clOrdID, err := msg.Body.GetString(tag.ClOrdID); err == nil && clOrdID != "" {
		return clOrdID
	}

	if msgType, err := msg.Header.GetString(tag.MsgType); err == nil {
		return "MSGTYPE:" + msgType
	}

	return sessionID.String()
}

func (a *Application) route(msg *quickfix.Message, sessionID quickfix.SessionID) {
	if err := a.Route(msg, sessionID); err != nil {
		a.logger.Warn("route error", zap.Error(err))
	}
}

func (a *Application) runDispatcher() {
	for msg := range a.dispatcher {
		a.route(msg.msg, msg.sessionID)
	}
}

func (a *Application) onNewOrderSingle(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	req := NewOrder{
		ClOrdID: bodyString(msg, tag.ClOrdID),
		Symbol:  bodyString(msg, tag.Symbol),
		Side:    enum.Side(bodyString(msg, tag.Side)),
		OrdType: enum.OrdType(bodyString(msg, tag.OrdType)),
	}
	req.Quantity, _ = bodyDecimal(msg, tag.OrderQty)
	if px, ok := bodyDecimal(msg, tag.Price); ok {
		req.Price = decimal.NewNullDecimal(px)
	}

	for _, r := range a.venue.OnNewOrder(req) {
		a.sendReport(r, sessionID)
	}
	return nil
}

func (a *Application) onOrderCancelRequest(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	req := CancelOrder{
		ClOrdID:     bodyString(msg, tag.ClOrdID),
		OrigClOrdID: bodyString(msg, tag.OrigClOrdID),
		OrderID:     bodyString(msg, tag.OrderID),
		Symbol:      bodyString(msg, tag.Symbol),
		Side:        enum.Side(bodyString(msg, tag.Side)),
	}

	report, rej := a.venue.OnCancel(req)
	if rej != nil {
		m, err := cancelReject(sessionID.BeginString, *rej)
		if err != nil {
			a.logger.Warn("build cancel reject", zap.Error(err))
			return nil
		}
		a.dispatch(m, sessionID, "cancel reject", rej.ClOrdID)
		return nil
	}
	a.sendReport(*report, sessionID)
	return nil
}

func (a *Application) sendReport(r Report, sessionID quickfix.SessionID) {
	m, err := executionReport(sessionID.BeginString, r)
	if err != nil {
		a.logger.Warn("build execution report", zap.Error(err))
		return
	}
	a.dispatch(m, sessionID, "execution report", r.ClOrdID)
}

func (a *Application) dispatch(m quickfix.Messagable, sessionID quickfix.SessionID, kind, clOrdID string) {
	if err := a.send(m, sessionID); err != nil {
		a.logger.Warn("send failed",
			zap.String("kind", kind),
			zap.String("cl_ord_id", clOrdID),
			zap.Error(err))
	}
}

func (a *Application) close() {
	if a.dispatcher != nil {
		close(a.dispatcher)
	}
}

func bodyString(msg *quickfix.Message, t quickfix.Tag) string {
	v, _ := msg.Body.GetString(t)
	return v
}

func bodyDecimal(msg *quickfix.Message, t quickfix.Tag) (decimal.Decimal, bool) {
	v, err := msg.Body.GetString(t)
	if err != nil {
		return decimal.Zero, false
	}
	d, perr := decimal.NewFromString(v)
	if perr != nil {
		return decimal.Zero, false
	}
	return d, true
}
