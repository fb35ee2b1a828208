package main

import (
	"time"

	"github.com/joripage/fixsim/pkg/fixserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var venueRejectProbability float64

var venueCmd = &cobra.Command{
	Use:   "venue",
	Short: "Run the simulated venue as a FIX acceptor until interrupted",
	RunE:  runVenue,
}

func init() {
	rootCmd.AddCommand(venueCmd)

	venueCmd.Flags().Float64Var(&venueRejectProbability, "reject-probability", -1, "probability of rejecting a new order (overrides config)")
}

func runVenue(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if venueRejectProbability >= 0 {
		cfg.Venue.Venue.RejectProbability = venueRejectProbability
	}

	logger, err := setupLogger(cfg, "venue_"+time.Now().Format("20060102_150405"))
	if err != nil {
		return err
	}
	defer logger.Sync() // nolint

	ctx, stop := signalContext()
	defer stop()

	server := fixserver.NewServer(cfg.Venue, logger.Zap().Named("venue"))
	if err := server.Start(); err != nil {
		zap.S().Errorf("start venue err=%v", err)
		return err
	}
	<-ctx.Done()
	server.Stop()
	zap.S().Infof("venue stopped, %d orders resting", server.Venue().Resting())
	return nil
}
