package model

import (
	"fmt"
	"time"

	"github.com/quickfixgo/enum"
)

type Direction string

const (
	DirectionSent     Direction = "send"
	DirectionReceived Direction = "receive"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionSent, DirectionReceived:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Message types the capture engine records. Values are the FIX MsgType (35) codes.
const (
	MsgTypeNewOrderSingle     = enum.MsgType_ORDER_SINGLE
	MsgTypeOrderCancelRequest = enum.MsgType_ORDER_CANCEL_REQUEST
	MsgTypeExecutionReport    = enum.MsgType_EXECUTION_REPORT
	MsgTypeOrderCancelReject  = enum.MsgType_ORDER_CANCEL_REJECT
	MsgTypeReject             = enum.MsgType_REJECT
)

var msgTypeNames = map[enum.MsgType]string{
	MsgTypeNewOrderSingle:     "NewOrderSingle",
	MsgTypeOrderCancelRequest: "OrderCancelRequest",
	MsgTypeExecutionReport:    "ExecutionReport",
	MsgTypeOrderCancelReject:  "OrderCancelReject",
	MsgTypeReject:             "Reject",
}

// MsgTypeName returns a readable name for a recorded message type.
func MsgTypeName(t enum.MsgType) string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return string(t)
}

// Fields is a sparse tag -> wire value map. Only tags present on the
// message are stored.
type Fields map[Tag]string

func (f Fields) Get(t Tag) (string, bool) {
	v, ok := f[t]
	return v, ok
}

// Set stores a value for a known tag. Empty values and unknown tags are dropped.
func (f Fields) Set(t Tag, v string) bool {
	if v == "" || !t.Known() {
		return false
	}
	f[t] = v
	return true
}

func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// EventRecord is one captured protocol message. Records are immutable once
// appended to the event log.
type EventRecord struct {
	Direction      Direction    `json:"direction"`
	MessageType    enum.MsgType `json:"message_type"`
	SequenceNumber int          `json:"sequence_number"`
	SendingTime    time.Time    `json:"sending_time"`
	Fields         Fields       `json:"fields"`
}

func (r EventRecord) CorrelationID() string {
	return r.Fields[TagClOrdID]
}

func (r EventRecord) Symbol() string {
	return r.Fields[TagSymbol]
}

// Validate checks that every field key belongs to the known tag set.
func (r EventRecord) Validate() error {
	if _, err := ParseDirection(string(r.Direction)); err != nil {
		return err
	}
	if r.MessageType == "" {
		return fmt.Errorf("missing message type")
	}
	for t := range r.Fields {
		if !t.Known() {
			return fmt.Errorf("unknown tag %d", t)
		}
	}
	return nil
}
