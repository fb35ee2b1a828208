package model

import (
	"sort"
	"strconv"
)

// Tag is a FIX field tag the capture engine knows how to record.
type Tag int

const (
	TagClOrdID             Tag = 11
	TagHandlInst           Tag = 21
	TagLastPx              Tag = 31
	TagLastQty             Tag = 32
	TagOrderID             Tag = 37
	TagOrderQty            Tag = 38
	TagOrdStatus           Tag = 39
	TagOrdType             Tag = 40
	TagOrigClOrdID         Tag = 41
	TagPrice               Tag = 44
	TagRefSeqNum           Tag = 45
	TagSide                Tag = 54
	TagSymbol              Tag = 55
	TagText                Tag = 58
	TagTimeInForce         Tag = 59
	TagTransactTime        Tag = 60
	TagExecType            Tag = 150
	TagRefTagID            Tag = 371
	TagRefMsgType          Tag = 372
	TagSessionRejectReason Tag = 373
)

var tagNames = map[Tag]string{
	TagClOrdID:             "ClOrdID",
	TagHandlInst:           "HandlInst",
	TagLastPx:              "LastPx",
	TagLastQty:             "LastQty",
	TagOrderID:             "OrderID",
	TagOrderQty:            "OrderQty",
	TagOrdStatus:           "OrdStatus",
	TagOrdType:             "OrdType",
	TagOrigClOrdID:         "OrigClOrdID",
	TagPrice:               "Price",
	TagRefSeqNum:           "RefSeqNum",
	TagSide:                "Side",
	TagSymbol:              "Symbol",
	TagText:                "Text",
	TagTimeInForce:         "TimeInForce",
	TagTransactTime:        "TransactTime",
	TagExecType:            "ExecType",
	TagRefTagID:            "RefTagID",
	TagRefMsgType:          "RefMsgType",
	TagSessionRejectReason: "SessionRejectReason",
}

// knownTags is sorted ascending and fixes the column order of persisted logs.
var knownTags = func() []Tag {
	tags := make([]Tag, 0, len(tagNames))
	for t := range tagNames {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}()

// KnownTags returns every recordable tag in ascending order.
func KnownTags() []Tag {
	out := make([]Tag, len(knownTags))
	copy(out, knownTags)
	return out
}

func (t Tag) Known() bool {
	_, ok := tagNames[t]
	return ok
}

func (t Tag) Name() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "Tag" + strconv.Itoa(int(t))
}

// String returns the numeric form used as the column key in persisted logs.
func (t Tag) String() string {
	return strconv.Itoa(int(t))
}

// ParseTag parses a numeric tag key and rejects tags outside the known set.
func ParseTag(s string) (Tag, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	t := Tag(n)
	return t, t.Known()
}
