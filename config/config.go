package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Sources  SourcesConfig  `mapstructure:"sources"`
	Routing  RoutingConfig  `mapstructure:"routing"`
	Symbols  []SymbolConfig `mapstructure:"symbols"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	API      APIConfig      `mapstructure:"api"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type SourcesConfig struct {
	Push PushSourceConfig `mapstructure:"push"`
	Poll PollSourceConfig `mapstructure:"poll"`
}

type PushSourceConfig struct {
	ID     string `mapstructure:"id"`      // source identifier, e.g. "primary-stream"
	URL    string `mapstructure:"url"`     // websocket endpoint
	APIKey string `mapstructure:"api_key"` // optional auth token
}

type PollSourceConfig struct {
	ID       string        `mapstructure:"id"`       // source identifier, e.g. "fallback-poll"
	BaseURL  string        `mapstructure:"base_url"` // REST endpoint
	APIKey   string        `mapstructure:"api_key"`
	Interval time.Duration `mapstructure:"interval"` // fetch cadence, e.g. 60s
	Timeout  time.Duration `mapstructure:"timeout"`  // per-cycle request timeout
}

type RoutingConfig struct {
	// Staleness windows per asset class (primary silence before failover).
	Staleness        map[string]time.Duration `mapstructure:"staleness"`
	CompareWindow    time.Duration            `mapstructure:"compare_window"`    // cross-source delta comparison window
	MaxFutureSkew    time.Duration            `mapstructure:"max_future_skew"`   // future timestamp tolerance
	SnapshotInterval time.Duration            `mapstructure:"snapshot_interval"` // persistence sink cadence
	Backoff          BackoffConfig            `mapstructure:"backoff"`
}

type BackoffConfig struct {
	Initial time.Duration `mapstructure:"initial"`
	Max     time.Duration `mapstructure:"max"`
	Factor  float64       `mapstructure:"factor"`
}

type SymbolConfig struct {
	Symbol     string `mapstructure:"symbol"`
	AssetClass string `mapstructure:"asset_class"`
}

type KafkaConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Brokers    []string `mapstructure:"brokers"`
	TickTopic  string   `mapstructure:"tick_topic"`
	AlertTopic string   `mapstructure:"alert_topic"`
}

type APIConfig struct {
	Addr string `mapstructure:"addr"` // monitoring endpoint listen address
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}

	// Support environment variables with dot notation (e.g., SOURCES_PUSH_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
