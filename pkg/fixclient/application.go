package fixclient

import (
	"sync"
	"sync/atomic"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/joripage/go_util/pkg/shardqueue"
	"github.com/quickfixgo/enum"
	fix42er "github.com/quickfixgo/fix42/executionreport"
	fix42ocj "github.com/quickfixgo/fix42/ordercancelreject"
	fix44er "github.com/quickfixgo/fix44/executionreport"
	fix44ocj "github.com/quickfixgo/fix44/ordercancelreject"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"go.uber.org/zap"
)

// Handler receives session lifecycle signals and parsed inbound messages.
type Handler interface {
	OnSessionUp()
	OnSessionDown()
	OnInboundExecutionReport(msg *model.InboundMessage) error
	OnInboundCancelReject(msg *model.InboundMessage) error
	OnInboundSessionReject(msg *model.InboundMessage) error
}

// Application implements the quickfix.Application interface
type Application struct {
	*quickfix.MessageRouter
	cfg        AppConfig
	handler    Handler
	logger     *zap.Logger
	dispatcher chan *inboundMsg
	shardQueue *shardqueue.Shardqueue

	sessionID atomic.Pointer[quickfix.SessionID]
	lastLogon atomic.Pointer[quickfix.SessionID]
	logon     chan struct{}
	logonOnce sync.Once
	closeOnce sync.Once

	// ClOrdID -> MsgSeqNum assigned in ToApp
	seqNums sync.Map
}

type AppConfig struct {
	EnableQueue      bool
	EnableShardQueue bool
	NumShards        int
	QueueSize        int
}

type inboundMsg struct {
	msg       *quickfix.Message
	sessionID quickfix.SessionID
}

const (
	defaultNumShards = 16
	defaultQueueSize = 100_000
)

func newApplication(cfg AppConfig, handler Handler, logger *zap.Logger) *Application {
	if cfg.NumShards <= 0 {
		cfg.NumShards = defaultNumShards
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	app := &Application{
		MessageRouter: quickfix.NewMessageRouter(),
		cfg:           cfg,
		handler:       handler,
		logger:        logger,
		logon:         make(chan struct{}),
	}

	app.AddRoute(fix42er.Route(func(msg fix42er.ExecutionReport, sessionID quickfix.SessionID) quickfix.MessageRejectError {
		return app.onExecutionReport(msg.Message, sessionID)
	}))
	app.AddRoute(fix44er.Route(func(msg fix44er.ExecutionReport, sessionID quickfix.SessionID) quickfix.MessageRejectError {
		return app.onExecutionReport(msg.Message, sessionID)
	}))
	app.AddRoute(fix42ocj.Route(func(msg fix42ocj.OrderCancelReject, sessionID quickfix.SessionID) quickfix.MessageRejectError {
		return app.onOrderCancelReject(msg.Message, sessionID)
	}))
	app.AddRoute(fix44ocj.Route(func(msg fix44ocj.OrderCancelReject, sessionID quickfix.SessionID) quickfix.MessageRejectError {
		return app.onOrderCancelReject(msg.Message, sessionID)
	}))

	if app.cfg.EnableShardQueue {
		app.shardQueue = shardqueue.NewShardQueue(cfg.NumShards, cfg.QueueSize)
		app.shardQueue.Start(func(msg interface{}) error {
			if v, ok := msg.(*inboundMsg); ok {
				app.route(v.msg, v.sessionID)
			}
			return nil
		})
	} else if app.cfg.EnableQueue {
		app.dispatcher = make(chan *inboundMsg, cfg.QueueSize)
		go app.runDispatcher()
	}

	return app
}

// OnCreate implemented as part of Application interface
func (a *Application) OnCreate(sessionID quickfix.SessionID) {
	a.logger.Info("session created", zap.String("session_id", sessionID.String()))
}

// OnLogon implemented as part of Application interface
func (a *Application) OnLogon(sessionID quickfix.SessionID) {
	a.sessionID.Store(&sessionID)
	a.lastLogon.Store(&sessionID)
	a.logger.Info("logon successful", zap.String("session_id", sessionID.String()))
	a.handler.OnSessionUp()
	a.logonOnce.Do(func() { close(a.logon) })
}

// OnLogout implemented as part of Application interface
func (a *Application) OnLogout(sessionID quickfix.SessionID) {
	a.sessionID.Store(nil)
	a.logger.Info("logout", zap.String("session_id", sessionID.String()))
	a.handler.OnSessionDown()
}

// ToAdmin implemented as part of Application interface
func (a *Application) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {
	if msgType, err := msg.Header.GetString(tag.MsgType); err == nil {
		a.logger.Debug("to admin", zap.String("msg_type", msgType))
	}
}

// ToApp records the MsgSeqNum the session assigned, keyed by ClOrdID, so
// Send can return it. The session calls ToApp on the sending goroutine.
func (a *Application) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	clOrdID, err := msg.Body.GetString(tag.ClOrdID)
	if err != nil {
		return nil
	}
	if seq, err := msg.Header.GetInt(tag.MsgSeqNum); err == nil {
		a.seqNums.Store(clOrdID, seq)
	}
	return nil
}

// FromAdmin captures session-level Reject (35=3); other admin messages are
// only logged.
func (a *Application) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	msgType, err := msg.Header.GetString(tag.MsgType)
	if err != nil {
		return nil
	}
	if enum.MsgType(msgType) != enum.MsgType_REJECT {
		a.logger.Debug("from admin", zap.String("msg_type", msgType))
		return nil
	}

	in, perr := toInbound(msg)
	if perr != nil {
		a.logger.Warn("parse session reject", zap.Error(perr))
		return nil
	}
	if err := a.handler.OnInboundSessionReject(in); err != nil {
		a.logger.Warn("capture session reject", zap.Error(err))
	}
	return nil
}

// FromApp implemented as part of Application interface, uses Router on incoming application messages
func (a *Application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) (reject quickfix.MessageRejectError) {
	if a.cfg.EnableShardQueue {
		a.shardQueue.Shard(routingKey(msg, sessionID), &inboundMsg{msg, sessionID})
		return nil
	} else if a.cfg.EnableQueue {
		a.dispatcher <- &inboundMsg{msg, sessionID}
		return nil
	}

	a.route(msg, sessionID)
	return nil
}

// route never rejects back to the venue: unsupported types are logged and
// dropped.
func (a *Application) route(msg *quickfix.Message, sessionID quickfix.SessionID) {
	if err := a.Route(msg, sessionID); err != nil {
		msgType, _ := msg.Header.GetString(tag.MsgType)
		a.logger.Warn("route error", zap.String("msg_type", msgType), zap.Error(err))
	}
}

func (a *Application) runDispatcher() {
	for msg := range a.dispatcher {
		a.route(msg.msg, msg.sessionID)
	}
}

func (a *Application) onExecutionReport(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	in, err := toInbound(msg)
	if err != nil {
		a.logger.Warn("parse execution report", zap.Error(err))
		return nil
	}
	if err := a.handler.OnInboundExecutionReport(in); err != nil {
		a.logger.Warn("capture execution report", zap.Error(err))
	}
	return nil
}

func (a *Application) onOrderCancelReject(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	in, err := toInbound(msg)
	if err != nil {
		a.logger.Warn("parse order cancel reject", zap.Error(err))
		return nil
	}
	if err := a.handler.OnInboundCancelReject(in); err != nil {
		a.logger.Warn("capture order cancel reject", zap.Error(err))
	}
	return nil
}

func (a *Application) currentSession() (quickfix.SessionID, bool) {
	sid := a.sessionID.Load()
	if sid == nil {
		return quickfix.SessionID{}, false
	}
	return *sid, true
}

func (a *Application) takeSeqNum(clOrdID string) int {
	if v, ok := a.seqNums.LoadAndDelete(clOrdID); ok {
		return v.(int)
	}
	return 0
}

// close stops the dispatcher once the session is gone.
func (a *Application) close() {
	a.closeOnce.Do(func() {
		if a.dispatcher != nil {
			close(a.dispatcher)
		}
	})
}
