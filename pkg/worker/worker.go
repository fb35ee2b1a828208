package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkawrapper "github.com/joripage/fixsim/pkg/kafka_wrapper"
	"github.com/joripage/fixsim/pkg/repo"
	"github.com/joripage/fixsim/pkg/sink"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const fetchBatch = 10

// Worker persists mirrored envelopes into the event database.
type Worker struct {
	eventRecord repo.IEventRecord
	logger      *zap.Logger
}

func NewWorker(r repo.IRepo, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		eventRecord: r.EventRecord(),
		logger:      logger,
	}
}

// StartNatsConsumer pulls from a durable JetStream consumer until ctx ends.
// Malformed messages are acked and dropped; failed writes are left for
// redelivery.
func (w *Worker) StartNatsConsumer(ctx context.Context, js nats.JetStreamContext, subject, durable string) error {
	cons, err := js.PullSubscribe(subject, durable)
	if err != nil {
		return err
	}
	defer func() { _ = cons.Unsubscribe() }()

	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := cons.Fetch(fetchBatch, nats.MaxWait(time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Warn("fetch error", zap.Error(err))
			continue
		}

		envs := make([]sink.Envelope, 0, len(msgs))
		acks := make([]*nats.Msg, 0, len(msgs))
		for _, msg := range msgs {
			var env sink.Envelope
			if err := json.Unmarshal(msg.Data, &env); err != nil {
				w.logger.Warn("unmarshal envelope", zap.Error(err))
				_ = msg.Ack()
				continue
			}
			envs = append(envs, env)
			acks = append(acks, msg)
		}
		if err := w.handleEnvelopes(ctx, envs); err != nil {
			w.logger.Warn("persist batch", zap.Int("size", len(envs)), zap.Error(err))
			continue
		}
		for _, msg := range acks {
			_ = msg.Ack()
		}
	}
}

// StartKafkaConsumer runs a batch consumer group. A batch that still fails
// after the group's retries ends the consumer with its offsets uncommitted.
func (w *Worker) StartKafkaConsumer(ctx context.Context, cg *kafkawrapper.ConsumerGroup) error {
	return cg.Run(ctx, func(ctx context.Context, msgs []kafkawrapper.Message) error {
		envs := make([]sink.Envelope, 0, len(msgs))
		for _, m := range msgs {
			var env sink.Envelope
			if err := json.Unmarshal(m.Value, &env); err != nil {
				w.logger.Warn("unmarshal envelope",
					zap.Int64("offset", m.Offset),
					zap.Error(err))
				continue
			}
			envs = append(envs, env)
		}
		return w.handleEnvelopes(ctx, envs)
	})
}

func (w *Worker) handleEnvelopes(ctx context.Context, envs []sink.Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	rows := make([]*repo.EventRecord, 0, len(envs))
	for _, env := range envs {
		rows = append(rows, repo.NewEventRecord(env.RunID, env.Position, env.Record))
	}
	_, err := w.eventRecord.BulkCreate(ctx, rows)
	if err == nil {
		w.logger.Debug("persisted records", zap.Int("count", len(rows)))
	}
	return err
}
