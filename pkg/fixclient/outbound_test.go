package fixclient

import (
	"testing"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderFields() model.Fields {
	return model.Fields{
		model.TagClOrdID:      "00000001",
		model.TagSide:         "5",
		model.TagSymbol:       "MSFT",
		model.TagOrderQty:     "250",
		model.TagPrice:        "240.5",
		model.TagOrdType:      "2",
		model.TagHandlInst:    "1",
		model.TagTimeInForce:  "0",
		model.TagText:         "NewOrderSingle",
		model.TagTransactTime: "20240501-14:30:00.000",
	}
}

func body(t *testing.T, m *quickfix.Message, tg model.Tag) string {
	t.Helper()
	v, err := m.Body.GetString(quickfix.Tag(tg))
	require.Nil(t, err, "tag %d", tg)
	return v
}

func TestBuildNewOrderSingle(t *testing.T) {
	for _, begin := range []string{quickfix.BeginStringFIX42, quickfix.BeginStringFIX44} {
		t.Run(begin, func(t *testing.T) {
			out, err := buildMessage(begin, &model.OutboundMessage{
				MsgType: model.MsgTypeNewOrderSingle,
				Fields:  newOrderFields(),
			})
			require.NoError(t, err)
			m := out.ToMessage()

			msgType, _ := m.Header.GetString(tag.MsgType)
			assert.Equal(t, "D", msgType)
			beginString, _ := m.Header.GetString(tag.BeginString)
			assert.Equal(t, begin, beginString)
			assert.Equal(t, "00000001", body(t, m, model.TagClOrdID))
			assert.Equal(t, "5", body(t, m, model.TagSide))
			assert.Equal(t, "MSFT", body(t, m, model.TagSymbol))
			assert.Equal(t, "250", body(t, m, model.TagOrderQty))
			assert.Equal(t, "240.5", body(t, m, model.TagPrice))
			assert.Equal(t, "1", body(t, m, model.TagHandlInst))
			assert.Equal(t, "NewOrderSingle", body(t, m, model.TagText))
		})
	}
}

func TestBuildMarketOrderHasNoPrice(t *testing.T) {
	f := newOrderFields()
	delete(f, model.TagPrice)
	f[model.TagOrdType] = "1"

	out, err := buildMessage(quickfix.BeginStringFIX44, &model.OutboundMessage{MsgType: model.MsgTypeNewOrderSingle, Fields: f})
	require.NoError(t, err)
	assert.False(t, out.ToMessage().Body.Has(quickfix.Tag(model.TagPrice)))
}

func TestBuildOrderCancelRequest(t *testing.T) {
	f := model.Fields{
		model.TagClOrdID:      "00000002",
		model.TagOrigClOrdID:  "00000001",
		model.TagSide:         "1",
		model.TagSymbol:       "AAPL",
		model.TagOrderQty:     "100",
		model.TagOrderID:      "V1",
		model.TagText:         "OrderCancelRequest",
		model.TagTransactTime: "20240501-14:30:00.000",
	}
	for _, begin := range []string{quickfix.BeginStringFIX42, quickfix.BeginStringFIX44} {
		t.Run(begin, func(t *testing.T) {
			out, err := buildMessage(begin, &model.OutboundMessage{MsgType: model.MsgTypeOrderCancelRequest, Fields: f})
			require.NoError(t, err)
			m := out.ToMessage()

			msgType, _ := m.Header.GetString(tag.MsgType)
			assert.Equal(t, "F", msgType)
			assert.Equal(t, "00000001", body(t, m, model.TagOrigClOrdID))
			assert.Equal(t, "V1", body(t, m, model.TagOrderID))
			assert.Equal(t, "AAPL", body(t, m, model.TagSymbol))
		})
	}
}

func TestBuildErrors(t *testing.T) {
	_, err := buildMessage("FIX.4.0", &model.OutboundMessage{MsgType: model.MsgTypeNewOrderSingle, Fields: newOrderFields()})
	assert.ErrorIs(t, err, ErrUnsupportedBegin)

	_, err = buildMessage(quickfix.BeginStringFIX44, &model.OutboundMessage{MsgType: model.MsgTypeExecutionReport})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	f := newOrderFields()
	delete(f, model.TagTransactTime)
	_, err = buildMessage(quickfix.BeginStringFIX44, &model.OutboundMessage{MsgType: model.MsgTypeNewOrderSingle, Fields: f})
	assert.ErrorIs(t, err, ErrMissingField)
}
