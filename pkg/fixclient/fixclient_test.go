package fixclient

import (
	"sync"
	"testing"
	"time"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu       sync.Mutex
	up, down int
	reports  []*model.InboundMessage
	cancels  []*model.InboundMessage
	rejects  []*model.InboundMessage
}

func (h *recordingHandler) OnSessionUp()   { h.mu.Lock(); h.up++; h.mu.Unlock() }
func (h *recordingHandler) OnSessionDown() { h.mu.Lock(); h.down++; h.mu.Unlock() }

func (h *recordingHandler) OnInboundExecutionReport(msg *model.InboundMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports = append(h.reports, msg)
	return nil
}

func (h *recordingHandler) OnInboundCancelReject(msg *model.InboundMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancels = append(h.cancels, msg)
	return nil
}

func (h *recordingHandler) OnInboundSessionReject(msg *model.InboundMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejects = append(h.rejects, msg)
	return nil
}

func newMessage(beginString, msgType string, seq int, body map[model.Tag]string) *quickfix.Message {
	m := quickfix.NewMessage()
	m.Header.SetString(tag.BeginString, beginString)
	m.Header.SetString(tag.MsgType, msgType)
	m.Header.SetInt(tag.MsgSeqNum, seq)
	m.Header.SetString(tag.SendingTime, "20240501-14:30:01.250")
	for t, v := range body {
		m.Body.SetString(quickfix.Tag(t), v)
	}
	return m
}

func sessionID(beginString string) quickfix.SessionID {
	return quickfix.SessionID{BeginString: beginString, SenderCompID: "CLIENT", TargetCompID: "VENUE"}
}

func TestToInbound(t *testing.T) {
	msg := newMessage(quickfix.BeginStringFIX44, "8", 9, map[model.Tag]string{
		model.TagClOrdID: "00000001",
		model.TagOrderID: "V1",
		model.TagLastPx:  "150.25",
		model.Tag(1):     "ACCOUNT",
	})

	in, err := toInbound(msg)
	require.NoError(t, err)
	assert.Equal(t, model.MsgTypeExecutionReport, in.MsgType)
	assert.Equal(t, 9, in.SeqNum)
	assert.Equal(t, time.Date(2024, 5, 1, 14, 30, 1, 250_000_000, time.UTC), in.SendingTime)
	assert.Equal(t, "150.25", in.Fields[model.TagLastPx])
	assert.Len(t, in.Fields, 3)
}

func TestApplicationRoutesInbound(t *testing.T) {
	for _, begin := range []string{quickfix.BeginStringFIX42, quickfix.BeginStringFIX44} {
		t.Run(begin, func(t *testing.T) {
			h := &recordingHandler{}
			app := newApplication(AppConfig{}, h, zap.NewNop())
			sid := sessionID(begin)

			assert.Nil(t, app.FromApp(newMessage(begin, "8", 2, map[model.Tag]string{model.TagClOrdID: "00000001"}), sid))
			assert.Nil(t, app.FromApp(newMessage(begin, "9", 3, map[model.Tag]string{model.TagClOrdID: "00000002"}), sid))
			// unsupported application message: logged, not rejected
			assert.Nil(t, app.FromApp(newMessage(begin, "j", 4, nil), sid))
			assert.Nil(t, app.FromAdmin(newMessage(begin, "3", 5, map[model.Tag]string{model.TagRefSeqNum: "2"}), sid))
			assert.Nil(t, app.FromAdmin(newMessage(begin, "0", 6, nil), sid))

			require.Len(t, h.reports, 1)
			require.Len(t, h.cancels, 1)
			require.Len(t, h.rejects, 1)
			assert.Equal(t, 2, h.reports[0].SeqNum)
			assert.Equal(t, "00000002", h.cancels[0].Fields[model.TagClOrdID])
			assert.Equal(t, "2", h.rejects[0].Fields[model.TagRefSeqNum])
		})
	}
}

func TestApplicationDispatcherQueue(t *testing.T) {
	h := &recordingHandler{}
	app := newApplication(AppConfig{EnableQueue: true, QueueSize: 8}, h, zap.NewNop())
	sid := sessionID(quickfix.BeginStringFIX44)
	for i := 0; i < 5; i++ {
		app.FromApp(newMessage(quickfix.BeginStringFIX44, "8", i+1, map[model.Tag]string{model.TagClOrdID: "x"}), sid)
	}
	assert.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.reports) == 5
	}, time.Second, 5*time.Millisecond)
	app.close()
	app.close()
}

func TestSessionLifecycle(t *testing.T) {
	h := &recordingHandler{}
	app := newApplication(AppConfig{}, h, zap.NewNop())
	sid := sessionID(quickfix.BeginStringFIX42)

	_, ok := app.currentSession()
	assert.False(t, ok)

	app.OnLogon(sid)
	app.OnLogon(sid)
	got, ok := app.currentSession()
	require.True(t, ok)
	assert.Equal(t, sid, got)
	select {
	case <-app.logon:
	default:
		t.Fatal("logon channel not closed")
	}

	app.OnLogout(sid)
	_, ok = app.currentSession()
	assert.False(t, ok)
	assert.Equal(t, 2, h.up)
	assert.Equal(t, 1, h.down)
}

func TestToAppCapturesSeqNum(t *testing.T) {
	app := newApplication(AppConfig{}, &recordingHandler{}, zap.NewNop())
	msg := newMessage(quickfix.BeginStringFIX44, "D", 17, map[model.Tag]string{model.TagClOrdID: "00000004"})

	require.NoError(t, app.ToApp(msg, sessionID(quickfix.BeginStringFIX44)))
	assert.Equal(t, 17, app.takeSeqNum("00000004"))
	assert.Equal(t, 0, app.takeSeqNum("00000004"))
}

func TestClientSendRequiresLogon(t *testing.T) {
	c := NewClient(Config{}, &recordingHandler{}, nil)
	_, err := c.Send(&model.OutboundMessage{MsgType: model.MsgTypeNewOrderSingle})
	assert.ErrorIs(t, err, ErrNotLoggedOn)
	assert.Equal(t, 30*time.Second, Config{}.LogonTimeout())
}
