package main

import (
	"fmt"
	"time"

	"github.com/joripage/fixsim/pkg/logging"
	"github.com/joripage/fixsim/pkg/simulation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runLoopback   bool
	runIterations int
	runSeed       int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation and report on it",
	RunE:  runSimulation,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runLoopback, "loopback", false, "trade against the in-process venue instead of a FIX session")
	runCmd.Flags().IntVarP(&runIterations, "iterations", "n", 0, "workload iterations (overrides config)")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "workload seed (overrides config)")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runLoopback {
		cfg.Loopback = true
	}
	if runIterations > 0 {
		cfg.Workload.Iterations = runIterations
	}
	if runSeed != 0 {
		cfg.Workload.Seed = runSeed
	}

	stamp := time.Now().Format("20060102_150405")
	logger, err := setupLogger(cfg, "fixsim_"+stamp)
	if err != nil {
		return err
	}
	defer logger.Sync() // nolint

	ctx, stop := signalContext()
	defer stop()
	runID := logging.NewRunID()
	ctx = logging.WithRunID(ctx, runID)
	log := logger.Zap().With(zap.String("run_id", runID))

	sim, err := simulation.New(ctx, cfg, runID, log)
	if err != nil {
		log.Error("init simulation", zap.Error(err))
		return err
	}
	res, err := sim.Run(ctx)
	if err != nil {
		log.Error("simulation ended with error", zap.Error(err))
	}
	if res != nil && res.Report != nil {
		fmt.Fprint(cmd.OutOrStdout(), res.Report.Text())
	}
	return err
}
