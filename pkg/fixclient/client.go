package fixclient

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
	"go.uber.org/zap"
)

type Config struct {
	ConfigFilepath      string `yaml:"config_filepath"`
	EnableQueue         bool   `yaml:"enable_queue"`
	EnableShardQueue    bool   `yaml:"enable_shard_queue"`
	LogonTimeoutSeconds int    `yaml:"logon_timeout_seconds"`
}

func (c Config) LogonTimeout() time.Duration {
	if c.LogonTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.LogonTimeoutSeconds) * time.Second
}

// Client is the FIX initiator side of the simulator. It implements the
// capture engine's transport.
type Client struct {
	cfg       Config
	app       *Application
	initiator *quickfix.Initiator
	logger    *zap.Logger
}

func NewClient(cfg Config, handler Handler, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg: cfg,
		app: newApplication(AppConfig{
			EnableQueue:      cfg.EnableQueue,
			EnableShardQueue: cfg.EnableShardQueue,
		}, handler, logger),
		logger: logger,
	}
}

func loadSettings(path string) (*quickfix.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %v, %v", path, err)
	}
	settings, err := quickfix.ParseSettings(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error reading cfg: %w", err)
	}
	return settings, nil
}

// Start creates the initiator from the quickfix settings file and starts
// connecting. Logon completes asynchronously; see WaitLogon.
func (c *Client) Start() error {
	settings, err := loadSettings(c.cfg.ConfigFilepath)
	if err != nil {
		return err
	}

	logFactory, err := file.NewLogFactory(settings)
	if err != nil {
		return fmt.Errorf("unable to create fix log factory: %w", err)
	}
	initiator, err := quickfix.NewInitiator(c.app, quickfix.NewMemoryStoreFactory(), settings, logFactory)
	if err != nil {
		return fmt.Errorf("unable to create initiator: %w", err)
	}
	if err := initiator.Start(); err != nil {
		return fmt.Errorf("unable to start FIX initiator: %w", err)
	}
	c.initiator = initiator
	c.logger.Info("fix initiator started", zap.String("config", c.cfg.ConfigFilepath))
	return nil
}

// WaitLogon blocks until the first logon or the configured timeout.
func (c *Client) WaitLogon(ctx context.Context) error {
	timer := time.NewTimer(c.cfg.LogonTimeout())
	defer timer.Stop()

	select {
	case <-c.app.logon:
		return nil
	case <-timer.C:
		return ErrLogonTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send renders the message for the live session's FIX version and sends it.
// The returned sequence number is 0 when the session did not report one.
func (c *Client) Send(out *model.OutboundMessage) (int, error) {
	sessionID, ok := c.app.currentSession()
	if !ok {
		return 0, ErrNotLoggedOn
	}
	msg, err := buildMessage(sessionID.BeginString, out)
	if err != nil {
		return 0, err
	}
	if err := quickfix.SendToTarget(msg, sessionID); err != nil {
		c.app.takeSeqNum(out.Fields[model.TagClOrdID])
		return 0, err
	}
	return c.app.takeSeqNum(out.Fields[model.TagClOrdID]), nil
}

// SessionName is the last logged-on session, empty before the first logon.
func (c *Client) SessionName() string {
	if sid := c.app.lastLogon.Load(); sid != nil {
		return sid.String()
	}
	return ""
}

func (c *Client) Stop() {
	if c.initiator != nil {
		c.initiator.Stop()
		c.initiator = nil
	}
	c.app.close()
}
