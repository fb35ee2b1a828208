package kafkawrapper

import (
	"context"
	"errors"
	"testing"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBackoffDurationIsCapped(t *testing.T) {
	for attempt := 0; attempt < 20; attempt++ {
		d := backoffDuration(10*time.Millisecond, time.Second, attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, time.Second)
	}
}

func TestParseRequiredAcks(t *testing.T) {
	for in, want := range map[string]kafka.RequiredAcks{
		"":     kafka.RequireNone,
		"none": kafka.RequireNone,
		"one":  kafka.RequireOne,
		"all":  kafka.RequireAll,
		"-1":   kafka.RequireAll,
	} {
		got, err := ParseRequiredAcks(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseRequiredAcks("most")
	assert.Error(t, err)
}

func TestNewProducerAppliesConfig(t *testing.T) {
	p := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, RequiredAcks: kafka.RequireAll, Sync: true}, nil)
	assert.Equal(t, kafka.RequireAll, p.w.RequiredAcks)
	assert.False(t, p.w.Async)
	assert.Nil(t, p.w.Completion)
	assert.IsType(t, &kafka.Hash{}, p.w.Balancer)

	p = NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.True(t, p.w.Async)
	assert.NotNil(t, p.w.Completion)
}

func TestWrapMessage(t *testing.T) {
	m := wrapMessage(kafka.Message{
		Topic:   "fixsim.records",
		Offset:  7,
		Key:     []byte("k"),
		Value:   []byte("v"),
		Headers: []kafka.Header{{Key: "run_id", Value: []byte("r1")}},
	})
	assert.Equal(t, int64(7), m.Offset)
	assert.Equal(t, "r1", m.Headers["run_id"])
	assert.Equal(t, []byte("v"), m.Value)
	assert.Equal(t, "fixsim.records", m.raw.Topic)
}

func TestNilProducer(t *testing.T) {
	var p *Producer
	assert.ErrorIs(t, p.PublishJSON(context.Background(), "t", "k", struct{}{}, nil), ErrNotInitialized)
	require.NoError(t, p.Close(context.Background()))
}

func testGroup() *ConsumerGroup {
	cfg := ConsumerConfig{MaxRetries: 2, BackoffMin: time.Millisecond, BackoffMax: time.Millisecond}.withDefaults()
	return &ConsumerGroup{cfg: cfg, logger: zap.NewNop()}
}

func TestProcessRetriesTransientFailure(t *testing.T) {
	calls := 0
	err := testGroup().process(context.Background(), []Message{{Offset: 3}}, func(context.Context, []Message) error {
		calls++
		if calls < 2 {
			return errors.New("db down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestProcessGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	boom := errors.New("db down")
	err := testGroup().process(context.Background(), []Message{{Offset: 3}}, func(context.Context, []Message) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestProcessStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := testGroup()
	g.cfg.BackoffMin, g.cfg.BackoffMax = time.Hour, time.Hour
	err := g.process(ctx, []Message{{Offset: 3}}, func(context.Context, []Message) error {
		return errors.New("db down")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNilConsumerGroup(t *testing.T) {
	var cg *ConsumerGroup
	assert.ErrorIs(t, cg.Run(context.Background(), nil), ErrNotInitialized)
	assert.NoError(t, cg.Close())
}
