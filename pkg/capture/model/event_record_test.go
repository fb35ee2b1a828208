package model

import (
	"testing"

	"github.com/quickfixgo/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsSetDropsEmptyAndUnknown(t *testing.T) {
	f := Fields{}
	assert.True(t, f.Set(TagSymbol, "AAPL"))
	assert.False(t, f.Set(TagText, ""))
	assert.False(t, f.Set(Tag(9999), "x"))

	assert.Equal(t, Fields{TagSymbol: "AAPL"}, f)
}

func TestKnownTagsSorted(t *testing.T) {
	tags := KnownTags()
	require.NotEmpty(t, tags)
	for i := 1; i < len(tags); i++ {
		assert.Less(t, tags[i-1], tags[i])
	}
	assert.Equal(t, TagClOrdID, tags[0])
}

func TestParseTag(t *testing.T) {
	tag, ok := ParseTag("150")
	assert.True(t, ok)
	assert.Equal(t, TagExecType, tag)

	_, ok = ParseTag("10")
	assert.False(t, ok)
	_, ok = ParseTag("direction")
	assert.False(t, ok)
}

func TestEventRecordValidate(t *testing.T) {
	rec := EventRecord{
		Direction:   DirectionReceived,
		MessageType: enum.MsgType_EXECUTION_REPORT,
		Fields:      Fields{TagClOrdID: "00000001"},
	}
	assert.NoError(t, rec.Validate())

	rec.Fields[Tag(12345)] = "bad"
	assert.Error(t, rec.Validate())

	assert.Error(t, EventRecord{Direction: "sideways", MessageType: "8"}.Validate())
}

func TestSideFromWire(t *testing.T) {
	side, ok := SideFromWire("5")
	assert.True(t, ok)
	assert.Equal(t, OrderSideSellShort, side)

	_, ok = SideFromWire("9")
	assert.False(t, ok)
}
