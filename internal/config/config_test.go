package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FEED_URL", "https://feeds.example/iocs.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Unexpected addr: %s", cfg.Server.Addr())
	}
	if !cfg.UseMemoryStore() {
		t.Errorf("Expected memory store by default, got %s", cfg.Database.Driver)
	}
	if cfg.Refresh.Interval != 5*time.Minute {
		t.Errorf("Expected 5m interval, got %v", cfg.Refresh.Interval)
	}
	if !reflect.DeepEqual(cfg.Feed.Sources, []string{"blocklist.de", "spamhaus", "digitalside"}) {
		t.Errorf("Unexpected sources: %v", cfg.Feed.Sources)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_DSN", "/tmp/iocs.db")
	t.Setenv("FEED_FILE", "testdata/iocs.yaml")
	t.Setenv("FEED_SOURCES", "spamhaus, otx")
	t.Setenv("REFRESH_INTERVAL", "0")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.UseFileShim() || cfg.UseMemoryStore() {
		t.Errorf("Unexpected feed/store selection: %+v %+v", cfg.Feed, cfg.Database)
	}
	if !reflect.DeepEqual(cfg.Feed.Sources, []string{"spamhaus", "otx"}) {
		t.Errorf("Expected trimmed sources, got %v", cfg.Feed.Sources)
	}
	if cfg.Refresh.Interval != 0 {
		t.Errorf("Expected manual-only interval, got %v", cfg.Refresh.Interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "often")
	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "memory"},
			Feed:     FeedConfig{URL: "https://feeds.example/iocs.json", Format: "auto"},
			Log:      LogConfig{Format: "text"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing feed", func(c *Config) { c.Feed.URL = "" }},
		{"bad format", func(c *Config) { c.Feed.Format = "csv" }},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"sql without dsn", func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }},
		{"negative interval", func(c *Config) { c.Refresh.Interval = -time.Second }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Expected base config to be valid, got %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
