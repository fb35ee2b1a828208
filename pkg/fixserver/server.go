package fixserver

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
	"go.uber.org/zap"
)

type Config struct {
	ConfigFilepath string      `yaml:"config_filepath"`
	App            AppConfig   `yaml:"app"`
	Venue          VenueConfig `yaml:",inline"`
}

// Server runs the venue behind a FIX acceptor.
type Server struct {
	cfg      Config
	logger   *zap.Logger
	venue    *Venue
	app      *Application
	acceptor *quickfix.Acceptor
}

func NewServer(cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		venue:  NewVenue(cfg.Venue),
	}
}

func (s *Server) Venue() *Venue {
	return s.venue
}

func (s *Server) Start() error {
	f, err := os.Open(s.cfg.ConfigFilepath)
	if err != nil {
		return fmt.Errorf("error opening %v, %v", s.cfg.ConfigFilepath, err)
	}
	defer f.Close() // nolint

	stringData, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("error reading cfg: %w", err)
	}
	appSettings, err := quickfix.ParseSettings(bytes.NewReader(stringData))
	if err != nil {
		return fmt.Errorf("error reading cfg: %w", err)
	}

	s.app = newApplication(s.cfg.App, s.venue, s.logger)
	logFactory, err := file.NewLogFactory(appSettings)
	if err != nil {
		return fmt.Errorf("create log factory: %w", err)
	}
	acceptor, err := quickfix.NewAcceptor(s.app, quickfix.NewMemoryStoreFactory(), appSettings, logFactory)
	if err != nil {
		return fmt.Errorf("unable to create acceptor: %w", err)
	}
	if err := acceptor.Start(); err != nil {
		return fmt.Errorf("unable to start FIX acceptor: %w", err)
	}
	s.acceptor = acceptor
	s.logger.Info("venue listening", zap.String("settings", s.cfg.ConfigFilepath))
	return nil
}

func (s *Server) Stop() {
	if s.acceptor != nil {
		s.acceptor.Stop()
		s.acceptor = nil
	}
	if s.app != nil {
		s.app.close()
	}
}
