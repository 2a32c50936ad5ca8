package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Feed     FeedConfig
	Refresh  RefreshConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds database configuration. The memory driver keeps the
// dataset in process only.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"memory"`
	DSN    string `env:"DB_DSN" envDefault:"data/ioc-dashboard.db"`
}

// FeedConfig holds the upstream feed configuration.
type FeedConfig struct {
	URL     string        `env:"FEED_URL"`
	File    string        `env:"FEED_FILE"` // Path to a local feed file (disables HTTP)
	Format  string        `env:"FEED_FORMAT" envDefault:"auto"`
	Timeout time.Duration `env:"FEED_TIMEOUT" envDefault:"30s"`
	Sources []string      `env:"FEED_SOURCES" envSeparator:"," envDefault:"blocklist.de,spamhaus,digitalside"`
}

// RefreshConfig holds the automatic refresh configuration.
type RefreshConfig struct {
	Interval time.Duration `env:"REFRESH_INTERVAL" envDefault:"5m"` // 0 disables automatic refresh
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// MetricsConfig holds Prometheus exposition configuration.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Feed); err != nil {
		return nil, fmt.Errorf("parsing feed config: %w", err)
	}
	if err := env.Parse(&cfg.Refresh); err != nil {
		return nil, fmt.Errorf("parsing refresh config: %w", err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return nil, fmt.Errorf("parsing log config: %w", err)
	}
	if err := env.Parse(&cfg.Metrics); err != nil {
		return nil, fmt.Errorf("parsing metrics config: %w", err)
	}

	for i := range cfg.Feed.Sources {
		cfg.Feed.Sources[i] = strings.TrimSpace(cfg.Feed.Sources[i])
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Feed.URL == "" && c.Feed.File == "" {
		return fmt.Errorf("FEED_URL is required (or set FEED_FILE for a local feed)")
	}

	switch strings.ToLower(c.Feed.Format) {
	case "", "auto", "json", "yaml":
	default:
		return fmt.Errorf("FEED_FORMAT must be one of auto, json, yaml")
	}

	switch c.Database.Driver {
	case "memory":
	case "sqlite3", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("DB_DSN is required for driver %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("DB_DRIVER must be one of memory, sqlite3, postgres")
	}

	if c.Refresh.Interval < 0 {
		return fmt.Errorf("REFRESH_INTERVAL must not be negative")
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json")
	}

	return nil
}

// UseFileShim returns true if the feed should be read from a local file.
func (c *Config) UseFileShim() bool {
	return c.Feed.File != ""
}

// UseMemoryStore returns true if the dataset is held in process only.
func (c *Config) UseMemoryStore() bool {
	return c.Database.Driver == "memory"
}
