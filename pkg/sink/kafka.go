package sink

import (
	"context"
	"fmt"
	"strconv"

	kafkawrapper "github.com/joripage/fixsim/pkg/kafka_wrapper"
	"go.uber.org/zap"
)

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
	// RequiredAcks is none, one or all.
	RequiredAcks string `yaml:"required_acks"`
	Sync         bool   `yaml:"sync"`
}

func (c KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: no brokers")
	}
	if _, err := kafkawrapper.ParseRequiredAcks(c.RequiredAcks); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	return nil
}

type KafkaSink struct {
	producer *kafkawrapper.Producer
	topic    string
}

func NewKafkaSink(cfg KafkaConfig, logger *zap.Logger) (*KafkaSink, error) {
	acks, err := kafkawrapper.ParseRequiredAcks(cfg.RequiredAcks)
	if err != nil {
		return nil, fmt.Errorf("kafka sink: %w", err)
	}
	return &KafkaSink{
		producer: kafkawrapper.NewProducer(kafkawrapper.ProducerConfig{
			Brokers:      cfg.Brokers,
			RequiredAcks: acks,
			Sync:         cfg.Sync,
		}, logger),
		topic: cfg.Topic,
	}, nil
}

func (s *KafkaSink) Name() string { return "kafka" }

// Publish keys by correlation ID so one order's records stay on one
// partition in capture order.
func (s *KafkaSink) Publish(ctx context.Context, env Envelope) error {
	return s.producer.PublishJSON(ctx, s.topic, env.Key(), env, map[string]string{
		"run_id":       env.RunID,
		"position":     strconv.Itoa(env.Position),
		"message_type": string(env.Record.MessageType),
	})
}

func (s *KafkaSink) Close(ctx context.Context) error {
	return s.producer.Close(ctx)
}
