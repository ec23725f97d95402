package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/erain9/marketsim/pkg/db/queue"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "10m" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the application configuration
type Config struct {
	Server struct {
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"server"`

	Instrument struct {
		Symbol         string  `yaml:"symbol"`
		TickSize       string  `yaml:"tick_size"`
		ReferencePrice string  `yaml:"reference_price"`
		Agents         int     `yaml:"agents"`
		Makers         int     `yaml:"makers"`
		MarketRatio    float64 `yaml:"market_ratio"`
	} `yaml:"instrument"`

	Simulation struct {
		Speed              float64  `yaml:"speed"`
		Open               string   `yaml:"open"`
		AuctionLength      Duration `yaml:"auction_length"`
		ContinuousLength   Duration `yaml:"continuous_length"`
		MonitorThreshold   float64  `yaml:"monitor_threshold"`
		UnscheduledLength  Duration `yaml:"unscheduled_length"`
		SnapshotMaxAge     Duration `yaml:"snapshot_max_age"`
		PriceMonitorOn     bool     `yaml:"price_monitor"`
		AuditEnabled       bool     `yaml:"audit"`
		RedisSnapshotsOn   bool     `yaml:"redis_snapshots"`
		SnapshotPublishGap Duration `yaml:"snapshot_publish_gap"`
	} `yaml:"simulation"`

	Kafka struct {
		Enabled    bool   `yaml:"enabled"`
		BrokerAddr string `yaml:"broker_addr"`
		TradeTopic string `yaml:"trade_topic"`
		AuditTopic string `yaml:"audit_topic"`
	} `yaml:"kafka"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Otel struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"otel"`
}

// Default configuration values
var (
	configFile = flag.String("config", "", "Path to config file (YAML)")
	logLevel   = flag.String("log_level", "info", "Log level: debug, info, warn, error")
	logFormat  = flag.String("log_format", "pretty", "Log format: json, pretty")
	speed      = flag.Float64("speed", 60, "Simulation speed factor (sim seconds per wall second)")
	symbol     = flag.String("symbol", "SIM1", "Instrument symbol")
)

// LoadConfig loads the configuration from command line flags and optionally from a config file
func LoadConfig() (*Config, error) {
	// Parse command line flags
	flag.Parse()

	// Create default configuration
	config := &Config{}
	config.Server.LogLevel = *logLevel
	config.Server.LogFormat = *logFormat

	config.Instrument.Symbol = *symbol
	config.Instrument.TickSize = "0.01"
	config.Instrument.ReferencePrice = "100.00"
	config.Instrument.Agents = 8
	config.Instrument.Makers = 2
	config.Instrument.MarketRatio = 0.1

	config.Simulation.Speed = *speed
	config.Simulation.Open = "08:00"
	config.Simulation.AuctionLength = Duration(10 * time.Minute)
	config.Simulation.ContinuousLength = Duration(8 * time.Hour)
	config.Simulation.MonitorThreshold = 0.05
	config.Simulation.UnscheduledLength = Duration(5 * time.Minute)
	config.Simulation.SnapshotMaxAge = Duration(250 * time.Millisecond)
	config.Simulation.PriceMonitorOn = true
	config.Simulation.SnapshotPublishGap = Duration(time.Second)

	config.Kafka.BrokerAddr = "localhost:9092"
	config.Kafka.TradeTopic = "marketsim-trades"
	config.Kafka.AuditTopic = "marketsim-audit"
	config.Redis.Addr = "localhost:6379"

	// Load configuration from file if specified
	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Parse YAML configuration
		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Propagate Kafka configuration to the audit appender package
	queue.SetBrokerList(config.Kafka.BrokerAddr)
	queue.SetTopic(config.Kafka.AuditTopic)

	return config, nil
}
