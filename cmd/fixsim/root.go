package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/joripage/fixsim/config"
	"github.com/joripage/fixsim/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "fixsim",
	Short: "Simulated FIX trading client with message capture and analytics",
	Long: `fixsim drives a randomized order workload over a FIX session, captures
every order-lifecycle message, persists the capture and reports order counts,
traded volume, PnL and VWAP.

Subcommands:
  - run: run a simulation against a venue (or the in-process loopback venue)
  - report: recompute the report from a CSV capture, the SQLite journal or the event DB
  - venue: run the simulated venue as a FIX acceptor
  - migrate: apply the event DB schema
  - worker: persist mirrored records from NATS/Kafka into the event DB`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config-file", "", "config file path (default $CONFIG_FILE, else built-in defaults)")
}

// loadConfig falls back to the built-in defaults when neither the flag nor
// CONFIG_FILE names a file.
func loadConfig() (*config.AppConfig, error) {
	if configFile == "" && os.Getenv("CONFIG_FILE") == "" {
		return config.Default(), nil
	}
	return config.Load(configFile)
}

func setupLogger(cfg *config.AppConfig, name string) (*logging.Logger, error) {
	logger, err := logging.New(logging.Config{
		Level: cfg.Log.Level,
		Dir:   cfg.Log.Dir,
		Name:  name,
	})
	if err != nil {
		return nil, err
	}

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}
	return logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
