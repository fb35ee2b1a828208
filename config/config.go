package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joripage/fixsim/pkg/analytics"
	riskrule "github.com/joripage/fixsim/pkg/capture/risk_rule"
	"github.com/joripage/fixsim/pkg/fixclient"
	"github.com/joripage/fixsim/pkg/fixserver"
	postgres_wrapper "github.com/joripage/fixsim/pkg/infra/postgres"
	"github.com/joripage/fixsim/pkg/sink"
	"github.com/joripage/fixsim/pkg/workload"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ServiceName  string                           `yaml:"service_name"`
	Log          LogConfig                        `yaml:"log"`
	Fix          fixclient.Config                 `yaml:"fix"`
	Loopback     bool                             `yaml:"loopback"`
	Workload     workload.Config                  `yaml:"workload"`
	DrainSeconds int                              `yaml:"drain_seconds"`
	Analytics    analytics.Config                 `yaml:"analytics"`
	Output       OutputConfig                     `yaml:"output"`
	Risk         RiskConfig                       `yaml:"risk"`
	Sinks        SinksConfig                      `yaml:"sinks"`
	EventDB      *postgres_wrapper.PostgresConfig `yaml:"event_db"`
	Venue        fixserver.Config                 `yaml:"venue"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type OutputConfig struct {
	Dir          string           `yaml:"dir"`
	ReportFormat analytics.Format `yaml:"report_format"`
	SqlitePath   string           `yaml:"sqlite_path"`
}

type RiskConfig struct {
	PriceBands   map[string]riskrule.PriceBand `yaml:"price_bands"`
	TickSizeFile string                        `yaml:"tick_size_file"`
}

// SinksConfig enables live mirroring per backend; a nil section is off.
type SinksConfig struct {
	Kafka *sink.KafkaConfig `yaml:"kafka"`
	Nats  *sink.NatsConfig  `yaml:"nats"`
	Redis *sink.RedisConfig `yaml:"redis"`
}

const (
	defaultServiceName     = "fixsim"
	defaultDrainSeconds    = 10
	defaultLogDir          = "Log"
	defaultOutputDir       = "Results"
	defaultClientSettings  = "./config/fixclient.cfg"
	defaultVenueSettings   = "./config/fixserver.cfg"
	defaultLogLevel        = "info"
	defaultKafkaTopic      = "fixsim.records"
	defaultRedisStream     = "fixsim:records"
	defaultKafkaConsumerID = "fixsim-worker"
)

// DefaultReferencePrices are the per-symbol marks used by reference PnL and
// the venue simulator when nothing is configured.
func DefaultReferencePrices() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"MSFT": decimal.NewFromInt(240),
		"AAPL": decimal.NewFromInt(150),
		"BAC":  decimal.NewFromInt(32),
	}
}

// Default is the configuration used when no file is given.
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.applyDefaults()
	return cfg
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		sugar.Error("Invalid config")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Dir == "" {
		c.Log.Dir = defaultLogDir
	}
	if c.Fix.ConfigFilepath == "" {
		c.Fix.ConfigFilepath = defaultClientSettings
	}
	c.Workload = c.Workload.WithDefaults()
	if c.DrainSeconds <= 0 {
		c.DrainSeconds = defaultDrainSeconds
	}
	if c.Analytics.PnLMode == "" {
		c.Analytics.PnLMode = analytics.PnLModeReference
	}
	if len(c.Analytics.ReferencePrices) == 0 {
		c.Analytics.ReferencePrices = DefaultReferencePrices()
	}
	if c.Output.Dir == "" {
		c.Output.Dir = defaultOutputDir
	}
	if c.Output.ReportFormat == "" {
		c.Output.ReportFormat = analytics.FormatText
	}
	if c.Sinks.Kafka != nil {
		if c.Sinks.Kafka.Topic == "" {
			c.Sinks.Kafka.Topic = defaultKafkaTopic
		}
		if c.Sinks.Kafka.GroupID == "" {
			c.Sinks.Kafka.GroupID = defaultKafkaConsumerID
		}
	}
	if c.Sinks.Nats != nil {
		n := c.Sinks.Nats.WithDefaults()
		c.Sinks.Nats = &n
	}
	if c.Sinks.Redis != nil && c.Sinks.Redis.Stream == "" {
		c.Sinks.Redis.Stream = defaultRedisStream
	}
	if c.Venue.ConfigFilepath == "" {
		c.Venue.ConfigFilepath = defaultVenueSettings
	}
	if len(c.Venue.Venue.ReferencePrices) == 0 {
		c.Venue.Venue.ReferencePrices = c.Analytics.ReferencePrices
	}
}

func (c *AppConfig) Validate() error {
	if err := c.Workload.Validate(); err != nil {
		return err
	}
	if _, err := analytics.ParsePnLMode(string(c.Analytics.PnLMode)); err != nil {
		return err
	}
	switch c.Output.ReportFormat {
	case analytics.FormatText, analytics.FormatJSON, analytics.FormatYAML:
	default:
		return fmt.Errorf("unknown report format %q", c.Output.ReportFormat)
	}
	if c.Sinks.Kafka != nil {
		if err := c.Sinks.Kafka.Validate(); err != nil {
			return err
		}
	}
	if p := c.Venue.Venue.RejectProbability; p < 0 || p > 1 {
		return fmt.Errorf("venue reject probability %v not in [0, 1]", p)
	}
	return nil
}

func (c *AppConfig) Drain() time.Duration {
	return time.Duration(c.DrainSeconds) * time.Second
}
