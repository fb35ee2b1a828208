package model

import (
	"time"

	"github.com/quickfixgo/enum"
)

// OutboundMessage is what the capture engine hands to the session transport.
type OutboundMessage struct {
	MsgType enum.MsgType
	Fields  Fields
}

// InboundMessage is a parsed application or session message delivered by
// the transport. Fields holds every known tag present on the wire; the
// engine narrows it per message type.
type InboundMessage struct {
	MsgType     enum.MsgType
	SeqNum      int
	SendingTime time.Time
	Fields      Fields
}
