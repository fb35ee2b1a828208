package riskrule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limit(symbol string, price int64) *model.NewOrderRequest {
	return &model.NewOrderRequest{
		Symbol: symbol,
		Type:   model.OrderTypeLimit,
		Price:  decimal.NewNullDecimal(decimal.NewFromInt(price)),
	}
}

func TestLimitPriceRule(t *testing.T) {
	r := NewLimitPriceRule(map[string]PriceBand{
		"AAPL": {Floor: decimal.NewFromInt(100), Ceil: decimal.NewFromInt(300)},
	})

	assert.NoError(t, r.Check(limit("AAPL", 150)))
	assert.NoError(t, r.Check(limit("AAPL", 300)))
	assert.Error(t, r.Check(limit("AAPL", 301)))
	assert.Error(t, r.Check(limit("AAPL", 99)))
	assert.NoError(t, r.Check(limit("MSFT", 1)))
	assert.NoError(t, r.Check(&model.NewOrderRequest{Symbol: "AAPL", Type: model.OrderTypeMarket}))
}

func TestTickSizeRuleFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tick.json")
	body := `{"BAC": [{"maxPrice": "10", "step": "1"}, {"maxPrice": "0", "step": "5"}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	r, err := NewTickSizeRuleFromFile(path)
	require.NoError(t, err)

	assert.NoError(t, r.Check(limit("BAC", 7)))
	assert.NoError(t, r.Check(limit("BAC", 25)))
	assert.Error(t, r.Check(limit("BAC", 27)))
	assert.NoError(t, r.Check(limit("AAPL", 27)))
}

func TestTickSizeRuleMissingFile(t *testing.T) {
	_, err := NewTickSizeRuleFromFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
