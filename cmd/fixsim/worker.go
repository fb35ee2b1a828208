package main

import (
	"context"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/joripage/fixsim/pkg/infra"
	postgres_wrapper "github.com/joripage/fixsim/pkg/infra/postgres"
	kafkawrapper "github.com/joripage/fixsim/pkg/kafka_wrapper"
	"github.com/joripage/fixsim/pkg/repo"
	"github.com/joripage/fixsim/pkg/sink"
	"github.com/joripage/fixsim/pkg/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Persist mirrored records from NATS and/or Kafka into the event DB",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg, "worker")
	if err != nil {
		return err
	}
	defer logger.Sync() // nolint

	if cfg.EventDB == nil {
		return fmt.Errorf("event_db is not configured")
	}
	if cfg.Sinks.Nats == nil && cfg.Sinks.Kafka == nil {
		return fmt.Errorf("no nats or kafka section to consume from")
	}

	db, err := infra.GetMigrateTool().ConnectAndMigrate(cfg.EventDB)
	if err != nil {
		zap.S().Errorf("init db fail with err: %v", err)
		return err
	}
	defer postgres_wrapper.Close(db) // nolint

	ctx, stop := signalContext()
	defer stop()

	w := worker.NewWorker(repo.NewRepo(db), logger.Zap().Named("worker"))
	g, ctx := errgroup.WithContext(ctx)

	if n := cfg.Sinks.Nats; n != nil {
		nc, js, err := sink.ConnectJetStream(*n)
		if err != nil {
			return err
		}
		defer nc.Close()
		g.Go(func() error {
			return w.StartNatsConsumer(ctx, js, n.Subject, n.Durable)
		})
	}
	if k := cfg.Sinks.Kafka; k != nil {
		cg := kafkawrapper.NewConsumerGroup(kafkawrapper.ConsumerConfig{
			Brokers: k.Brokers,
			GroupID: k.GroupID,
			Topic:   k.Topic,
		}, zap.L().Named("kafka"))
		defer cg.Close() // nolint
		g.Go(func() error {
			return w.StartKafkaConsumer(ctx, cg)
		})
	}

	zap.S().Info("worker started")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
