package fixclient

import (
	"fmt"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
)

// toInbound copies the header values and every known body tag present on
// msg. Which tags are kept per message kind is the engine's decision.
func toInbound(msg *quickfix.Message) (*model.InboundMessage, error) {
	msgType, err := msg.Header.GetString(tag.MsgType)
	if err != nil {
		return nil, fmt.Errorf("read MsgType: %v", err)
	}

	in := &model.InboundMessage{
		MsgType: enum.MsgType(msgType),
		Fields:  model.Fields{},
	}
	if seq, err := msg.Header.GetInt(tag.MsgSeqNum); err == nil {
		in.SeqNum = seq
	}
	if ts, err := msg.Header.GetTime(tag.SendingTime); err == nil {
		in.SendingTime = ts.UTC()
	}
	for _, t := range model.KnownTags() {
		qt := quickfix.Tag(t)
		if !msg.Body.Has(qt) {
			continue
		}
		if v, err := msg.Body.GetString(qt); err == nil {
			in.Fields.Set(t, v)
		}
	}
	return in, nil
}

func routingKey(msg *quickfix.Message, sessionID quickfix.SessionID) string {
	if clOrdID, err := msg.Body.GetString(tag.ClOrdID); err == nil && clOrdID != "" {
		return clOrdID
	}

	if msgType, err := msg.Header.GetString(tag.MsgType); err == nil {
		return "MSGTYPE:" + msgType
	}

	return sessionID.String()
}
