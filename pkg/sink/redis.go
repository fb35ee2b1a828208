package sink

import (
	"context"
	"encoding/json"

	redis_wrapper "github.com/joripage/fixsim/pkg/infra/redis"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Client *redis_wrapper.RedisConfig `yaml:"client"`
	Stream string                     `yaml:"stream"`
	MaxLen int64                      `yaml:"max_len"`
}

// RedisSink appends envelopes to a Redis stream.
type RedisSink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	client, err := redis_wrapper.InitRedis(ctx, cfg.Client)
	if err != nil {
		return nil, err
	}
	return NewRedisSinkWithClient(client, cfg.Stream, cfg.MaxLen), nil
}

func NewRedisSinkWithClient(client redis.UniversalClient, stream string, maxLen int64) *RedisSink {
	if stream == "" {
		stream = "fixsim:records"
	}
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, env Envelope) error {
	b, err := json.Marshal(env.Record)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"run_id":   env.RunID,
			"position": env.Position,
			"record":   string(b),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	return s.client.XAdd(ctx, args).Err()
}

func (s *RedisSink) Close(ctx context.Context) error {
	return s.client.Close()
}
