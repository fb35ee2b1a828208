package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

type NatsConfig struct {
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
	Durable string `yaml:"durable"`
}

// WithDefaults fills the stream layout used by both the sink and the worker.
func (c NatsConfig) WithDefaults() NatsConfig {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.Stream == "" {
		c.Stream = "FIXSIM"
	}
	if c.Subject == "" {
		c.Subject = "FIXSIM.records"
	}
	if c.Durable == "" {
		c.Durable = "record_worker"
	}
	return c
}

// ConnectJetStream connects and makes sure the stream covering the subject
// exists.
func ConnectJetStream(cfg NatsConfig) (*nats.Conn, nats.JetStreamContext, error) {
	cfg = cfg.WithDefaults()
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	subjects := []string{cfg.Subject}
	if i := strings.Index(cfg.Subject, "."); i > 0 {
		subjects = []string{cfg.Subject[:i] + ".*"}
	}
	if _, err := js.StreamInfo(cfg.Stream); err != nil {
		if _, err := js.AddStream(&nats.StreamConfig{Name: cfg.Stream, Subjects: subjects}); err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("add stream %s: %w", cfg.Stream, err)
		}
	}
	return nc, js, nil
}

type NatsSink struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
}

func NewNatsSink(cfg NatsConfig) (*NatsSink, error) {
	cfg = cfg.WithDefaults()
	nc, js, err := ConnectJetStream(cfg)
	if err != nil {
		return nil, err
	}
	return &NatsSink{nc: nc, js: js, subject: cfg.Subject}, nil
}

func (s *NatsSink) Name() string { return "nats" }

func (s *NatsSink) Publish(ctx context.Context, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(s.subject)
	msg.Data = b
	msg.Header.Set(nats.MsgIdHdr, fmt.Sprintf("%s-%d", env.RunID, env.Position))
	_, err = s.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

func (s *NatsSink) Close(ctx context.Context) error {
	return s.nc.Drain()
}
