// Package kafkawrapper publishes captured records to Kafka and consumes them
// back in batches for the persistence worker.
package kafkawrapper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrNotInitialized = errors.New("kafka client not initialized")

type Message struct {
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	raw       kafka.Message
}

type ProducerConfig struct {
	Brokers      []string
	RequiredAcks kafka.RequiredAcks
	// Sync makes Publish wait for the broker instead of queueing.
	Sync         bool
	BatchTimeout time.Duration
}

// ParseRequiredAcks accepts none, one, all or their numeric forms. Empty
// means none.
func ParseRequiredAcks(s string) (kafka.RequiredAcks, error) {
	if s == "" {
		return kafka.RequireNone, nil
	}
	var acks kafka.RequiredAcks
	if err := acks.UnmarshalText([]byte(s)); err != nil {
		return kafka.RequireNone, err
	}
	return acks, nil
}

type Producer struct {
	w *kafka.Writer
}

// NewProducer builds a writer that partitions by key, so every record of one
// order lands on the same partition.
func NewProducer(cfg ProducerConfig, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	wr := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		RequiredAcks:           cfg.RequiredAcks,
		Async:                  !cfg.Sync,
	}
	if wr.Async {
		wr.Completion = func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Warn("async publish failed", zap.Int("count", len(msgs)), zap.Error(err))
			}
		}
	}
	return &Producer{w: wr}
}

func (p *Producer) PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error {
	if p == nil || p.w == nil {
		return ErrNotInitialized
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	kh := make([]kafka.Header, 0, len(headers))
	for k, v := range headers {
		kh = append(kh, kafka.Header{Key: k, Value: []byte(v)})
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   b,
		Headers: kh,
		Time:    time.Now(),
	})
}

func (p *Producer) Close(ctx context.Context) error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}

type ConsumerConfig struct {
	Brokers      []string
	GroupID      string
	Topic        string
	MaxRetries   int
	BackoffMin   time.Duration
	BackoffMax   time.Duration
	BatchSize    int           // max messages per batch
	BatchTimeout time.Duration // max wait before a partial batch is handed over
}

// ConsumerGroup reads one topic in batches and commits a batch only after
// the handler accepted it.
type ConsumerGroup struct {
	r      *kafka.Reader
	cfg    ConsumerConfig
	logger *zap.Logger
}

func NewConsumerGroup(cfg ConsumerConfig, logger *zap.Logger) *ConsumerGroup {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	})
	return &ConsumerGroup{r: rd, cfg: cfg, logger: logger}
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.BackoffMin == 0 {
		c.BackoffMin = 100 * time.Millisecond
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = 10 * time.Second
	}
	if c.BatchSize == 0 {
		c.BatchSize = 50
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = 200 * time.Millisecond
	}
	return c
}

func (cg *ConsumerGroup) Close() error {
	if cg == nil || cg.r == nil {
		return nil
	}
	return cg.r.Close()
}

// Run hands batches to handler until ctx ends. A batch the handler keeps
// failing stops the run uncommitted, so the group redelivers it on restart.
func (cg *ConsumerGroup) Run(ctx context.Context, handler func(context.Context, []Message) error) error {
	if cg == nil || cg.r == nil {
		return ErrNotInitialized
	}

	fetchFailures := 0
	for {
		batch, err := cg.fetchBatch(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			fetchFailures++
			cg.logger.Warn("fetch failed", zap.Int("attempt", fetchFailures), zap.Error(err))
			if !sleep(ctx, backoffDuration(cg.cfg.BackoffMin, cg.cfg.BackoffMax, fetchFailures)) {
				return ctx.Err()
			}
			continue
		}
		fetchFailures = 0
		if len(batch) == 0 {
			continue
		}

		if err := cg.process(ctx, batch, handler); err != nil {
			return err
		}
		raw := make([]kafka.Message, len(batch))
		for i, m := range batch {
			raw[i] = m.raw
		}
		if err := cg.r.CommitMessages(ctx, raw...); err != nil {
			cg.logger.Warn("commit failed", zap.Int("size", len(raw)), zap.Error(err))
		}
	}
}

// fetchBatch blocks for the first message, then collects more until the
// batch is full or BatchTimeout passes.
func (cg *ConsumerGroup) fetchBatch(ctx context.Context) ([]Message, error) {
	first, err := cg.r.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := []Message{wrapMessage(first)}

	fill, cancel := context.WithTimeout(ctx, cg.cfg.BatchTimeout)
	defer cancel()
	for len(batch) < cg.cfg.BatchSize {
		m, err := cg.r.FetchMessage(fill)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}
			return batch, nil
		}
		batch = append(batch, wrapMessage(m))
	}
	return batch, nil
}

func (cg *ConsumerGroup) process(ctx context.Context, batch []Message, handler func(context.Context, []Message) error) error {
	for attempt := 1; ; attempt++ {
		err := handler(ctx, batch)
		if err == nil {
			return nil
		}
		cg.logger.Warn("batch handler failed",
			zap.Int("attempt", attempt),
			zap.Int("size", len(batch)),
			zap.Int64("first_offset", batch[0].Offset),
			zap.Error(err))
		if attempt > cg.cfg.MaxRetries {
			return fmt.Errorf("batch at offset %d failed %d times: %w", batch[0].Offset, attempt, err)
		}
		if !sleep(ctx, backoffDuration(cg.cfg.BackoffMin, cg.cfg.BackoffMax, attempt)) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func wrapMessage(m kafka.Message) Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Headers:   headers,
		raw:       m,
	}
}

// backoffDuration is full-jitter exponential backoff capped at max.
func backoffDuration(min, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	pow := math.Pow(2, float64(attempt-1))
	d := time.Duration(float64(min) * pow)
	if d > max {
		d = max
	}
	if d > 0 {
		d = time.Duration(rand.Int63n(int64(d)))
	}
	return d
}
