package fixserver

import (
	"testing"

	"github.com/quickfixgo/enum"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVenue() *Venue {
	return NewVenue(VenueConfig{
		ReferencePrices: map[string]decimal.Decimal{
			"AAPL": decimal.NewFromInt(150),
			"MSFT": decimal.NewFromInt(240),
		},
		Seed: 7,
	})
}

func limit(id, symbol string, side enum.Side, qty, px int64) NewOrder {
	return NewOrder{
		ClOrdID:  id,
		Symbol:   symbol,
		Side:     side,
		OrdType:  enum.OrdType_LIMIT,
		Quantity: decimal.NewFromInt(qty),
		Price:    decimal.NewNullDecimal(decimal.NewFromInt(px)),
	}
}

func TestMarketOrderFillsAtReference(t *testing.T) {
	v := testVenue()
	reports := v.OnNewOrder(NewOrder{
		ClOrdID:  "00000001",
		Symbol:   "AAPL",
		Side:     enum.Side_BUY,
		OrdType:  enum.OrdType_MARKET,
		Quantity: decimal.NewFromInt(100),
	})

	require.Len(t, reports, 2)
	assert.Equal(t, OrderStatusNew, reports[0].Status)
	assert.True(t, reports[0].LeavesQty.Equal(decimal.NewFromInt(100)))

	fill := reports[1]
	assert.Equal(t, OrderStatusFilled, fill.Status)
	assert.True(t, fill.LastPx.Equal(decimal.NewFromInt(150)))
	assert.True(t, fill.LastQty.Equal(decimal.NewFromInt(100)))
	assert.True(t, fill.LeavesQty.IsZero())
	assert.Equal(t, reports[0].OrderID, fill.OrderID)
	assert.NotEqual(t, reports[0].ExecID, fill.ExecID)
	assert.Equal(t, 0, v.Resting())
}

func TestMarketableLimitFillsAtLimit(t *testing.T) {
	v := testVenue()

	buy := v.OnNewOrder(limit("1", "MSFT", enum.Side_BUY, 10, 250))
	require.Len(t, buy, 2)
	assert.True(t, buy[1].LastPx.Equal(decimal.NewFromInt(250)))

	sell := v.OnNewOrder(limit("2", "MSFT", enum.Side_SELL_SHORT, 10, 230))
	require.Len(t, sell, 2)
	assert.True(t, sell[1].LastPx.Equal(decimal.NewFromInt(230)))
}

func TestPassiveLimitRests(t *testing.T) {
	v := testVenue()
	reports := v.OnNewOrder(limit("1", "MSFT", enum.Side_BUY, 10, 200))
	require.Len(t, reports, 1)
	assert.Equal(t, OrderStatusNew, reports[0].Status)
	assert.Equal(t, 1, v.Resting())

	// no reference price: acked and left resting
	reports = v.OnNewOrder(limit("2", "IBM", enum.Side_SELL, 10, 1))
	require.Len(t, reports, 1)
	assert.Equal(t, 2, v.Resting())
}

func TestRejects(t *testing.T) {
	v := testVenue()

	r := v.OnNewOrder(NewOrder{ClOrdID: "1", Symbol: "IBM", Side: enum.Side_BUY, OrdType: enum.OrdType_MARKET, Quantity: decimal.NewFromInt(1)})
	require.Len(t, r, 1)
	assert.Equal(t, OrderStatusRejected, r[0].Status)
	assert.Contains(t, r[0].Text, "no reference price")

	r = v.OnNewOrder(limit("2", "AAPL", enum.Side_BUY, 0, 100))
	require.Len(t, r, 1)
	assert.Equal(t, OrderStatusRejected, r[0].Status)

	v.OnNewOrder(limit("3", "AAPL", enum.Side_BUY, 1, 100))
	r = v.OnNewOrder(limit("3", "AAPL", enum.Side_BUY, 1, 100))
	assert.Equal(t, "duplicate ClOrdID", r[0].Text)

	always := NewVenue(VenueConfig{RejectProbability: 1, Seed: 1})
	r = always.OnNewOrder(limit("1", "AAPL", enum.Side_BUY, 1, 100))
	assert.Equal(t, "simulated reject", r[0].Text)
}

func TestCancel(t *testing.T) {
	v := testVenue()
	acks := v.OnNewOrder(limit("1", "MSFT", enum.Side_BUY, 10, 200))

	report, rej := v.OnCancel(CancelOrder{ClOrdID: "2", OrigClOrdID: "1"})
	require.Nil(t, rej)
	require.NotNil(t, report)
	assert.Equal(t, OrderStatusCanceled, report.Status)
	assert.Equal(t, acks[0].OrderID, report.OrderID)
	assert.Equal(t, "1", report.OrigClOrdID)
	assert.Equal(t, "MSFT", report.Symbol)
	assert.Equal(t, 0, v.Resting())

	// second cancel on the same order is too late
	report, rej = v.OnCancel(CancelOrder{ClOrdID: "3", OrigClOrdID: "1"})
	assert.Nil(t, report)
	require.NotNil(t, rej)
	assert.Equal(t, enum.OrdStatus_CANCELED, rej.OrdStatus)
	assert.Equal(t, enum.CxlRejReason_TOO_LATE_TO_CANCEL, rej.Reason)

	_, rej = v.OnCancel(CancelOrder{ClOrdID: "4", OrigClOrdID: "missing"})
	require.NotNil(t, rej)
	assert.Equal(t, "NONE", rej.OrderID)
	assert.Equal(t, enum.CxlRejReason_UNKNOWN_ORDER, rej.Reason)
}

func TestVenueIDsIncrease(t *testing.T) {
	v := testVenue()
	last := ""
	for i := 0; i < 50; i++ {
		for _, r := range v.OnNewOrder(limit(string(rune('a'+i)), "AAPL", enum.Side_BUY, 1, 200)) {
			assert.Greater(t, r.ExecID, last)
			last = r.ExecID
		}
	}
}
