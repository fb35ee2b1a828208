package workload

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu      sync.Mutex
	orders  []model.NewOrderRequest
	ids     []string
	cancels []string
	failNew bool
}

func (f *fakeEngine) OnOutboundNewOrder(req model.NewOrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNew {
		return "", errors.New("send failed")
	}
	f.orders = append(f.orders, req)
	id := string(rune('a' + len(f.ids)%26))
	f.ids = append(f.ids, id)
	return id, nil
}

func (f *fakeEngine) OnOutboundCancel(orig string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, orig)
	return "c", nil
}

func (f *fakeEngine) RandomOrderID(r *rand.Rand) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ids) == 0 {
		return "", false
	}
	return f.ids[r.Intn(len(f.ids))], true
}

func TestDriverGeneratesValidOrders(t *testing.T) {
	eng := &fakeEngine{}
	cfg := DefaultConfig()
	cfg.Iterations = 2000
	cfg.Seed = 7
	d, err := NewDriver(cfg, eng, nil)
	require.NoError(t, err)

	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2000, stats.OrdersSent)
	assert.Equal(t, len(eng.cancels), stats.CancelsSent)
	assert.Zero(t, stats.Failures())

	sides := map[model.OrderSide]int{}
	for _, o := range eng.orders {
		r, ok := cfg.PriceRanges[o.Symbol]
		require.True(t, ok, o.Symbol)
		assert.GreaterOrEqual(t, o.Quantity, int64(1))
		assert.LessOrEqual(t, o.Quantity, int64(10000))
		switch o.Type {
		case model.OrderTypeLimit:
			require.True(t, o.Price.Valid)
			p := o.Price.Decimal.IntPart()
			assert.GreaterOrEqual(t, p, r.Min)
			assert.LessOrEqual(t, p, r.Max)
		case model.OrderTypeMarket:
			assert.False(t, o.Price.Valid)
		default:
			t.Fatalf("unexpected order type %s", o.Type)
		}
		sides[o.Side]++
	}
	assert.Len(t, sides, 3)
	assert.Greater(t, sides[model.OrderSideBuy], sides[model.OrderSideSell])

	// 5% of 2000 with a fixed seed
	assert.Greater(t, stats.CancelsSent, 40)
	assert.Less(t, stats.CancelsSent, 170)
}

func TestDriverIsDeterministicForSeed(t *testing.T) {
	run := func() []model.NewOrderRequest {
		eng := &fakeEngine{}
		cfg := DefaultConfig()
		cfg.Iterations = 50
		cfg.Seed = 42
		d, err := NewDriver(cfg, eng, nil)
		require.NoError(t, err)
		_, err = d.Run(context.Background())
		require.NoError(t, err)
		return eng.orders
	}
	assert.Equal(t, run(), run())
}

func TestDriverCountsFailuresAndContinues(t *testing.T) {
	eng := &fakeEngine{failNew: true}
	cfg := DefaultConfig()
	cfg.Iterations = 10
	cfg.CancelProbability = Probability(1)
	cfg.Seed = 1
	d, err := NewDriver(cfg, eng, nil)
	require.NoError(t, err)

	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Iterations)
	assert.Equal(t, 10, stats.OrderErrors)
	// empty store: no cancel is attempted
	assert.Zero(t, stats.CancelsSent)
	assert.Empty(t, eng.cancels)
}

func TestDriverStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := NewDriver(Config{Seed: 1}, &fakeEngine{}, nil)
	require.NoError(t, err)
	stats, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Iterations)
}

func TestConfigValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"cancel probability above one": func(c *Config) { c.CancelProbability = Probability(1.5) },
		"missing price range":          func(c *Config) { c.Symbols = append(c.Symbols, "IBM") },
		"inverted quantity range":      func(c *Config) { c.QuantityRange = Range{Min: 10, Max: 1} },
		"zero weights":                 func(c *Config) { c.SideWeights = []SideWeight{{Side: model.OrderSideBuy}} },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestWithDefaultsCancelProbability(t *testing.T) {
	cfg := Config{}.WithDefaults()
	require.NotNil(t, cfg.CancelProbability)
	assert.Equal(t, 0.05, *cfg.CancelProbability)

	cfg = Config{CancelProbability: Probability(0)}.WithDefaults()
	assert.Equal(t, 0.0, *cfg.CancelProbability)
}

func TestDriverDefaultConfigSendsCancels(t *testing.T) {
	eng := &fakeEngine{}
	d, err := NewDriver(Config{Iterations: 1000, Seed: 7}, eng, nil)
	require.NoError(t, err)

	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Positive(t, stats.CancelsSent)
}

func TestDriverExplicitZeroCancelProbability(t *testing.T) {
	eng := &fakeEngine{}
	d, err := NewDriver(Config{Iterations: 500, Seed: 7, CancelProbability: Probability(0)}, eng, nil)
	require.NoError(t, err)

	stats, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.CancelsSent)
	assert.Empty(t, eng.cancels)
}
