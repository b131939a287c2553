// Package main provides the AlertOps server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Database  DatabaseConfig  `yaml:"database"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Users     UsersConfig     `yaml:"users"`
	Scenarios ScenariosConfig `yaml:"scenarios"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	Directory DirectoryConfig `yaml:"directory"`
	History   HistoryConfig   `yaml:"history"`
	Verbose   bool            `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Address          string `yaml:"address"`             // HTTP listen address (default: :8080)
	RateLimitPerUser int    `yaml:"rate_limit_per_user"` // requests per minute per user
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Address string `yaml:"address"` // metrics listen address (default: :9090)
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// BridgeConfig points at the downstream cache service.
type BridgeConfig struct {
	Host           string        `yaml:"host"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
	ForceTimeout   time.Duration `yaml:"force_timeout"`
}

// UsersConfig points at the users service for actor resolution.
type UsersConfig struct {
	Host    string        `yaml:"host"`
	Timeout time.Duration `yaml:"timeout"`
}

// ScenariosConfig points at the remediation-procedure service.
type ScenariosConfig struct {
	Host     string        `yaml:"host"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// TrackerConfig points at the ticket tracker. Ticketing is disabled
// when the host is empty.
type TrackerConfig struct {
	Host      string        `yaml:"host"`
	ProjectID string        `yaml:"project_id"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DirectoryConfig controls the studio dictionary refresher.
type DirectoryConfig struct {
	Host            string        `yaml:"host"`
	Timeout         time.Duration `yaml:"timeout"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// HistoryConfig bounds rendered history windows.
type HistoryConfig struct {
	RetentionDays  int `yaml:"retention_days"`
	CommentlessCap int `yaml:"commentless_cap"`
	SearchLimit    int `yaml:"search_limit"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.RateLimitPerUser == 0 {
		c.Server.RateLimitPerUser = 100
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/alertops.db"
	}
	if c.Bridge.RefreshTimeout == 0 {
		c.Bridge.RefreshTimeout = 5 * time.Second
	}
	if c.Bridge.ForceTimeout == 0 {
		c.Bridge.ForceTimeout = 10 * time.Second
	}
	if c.Users.Timeout == 0 {
		c.Users.Timeout = 5 * time.Second
	}
	if c.Scenarios.Timeout == 0 {
		c.Scenarios.Timeout = 5 * time.Second
	}
	if c.Scenarios.CacheTTL == 0 {
		c.Scenarios.CacheTTL = 5 * time.Minute
	}
	if c.Tracker.Timeout == 0 {
		c.Tracker.Timeout = 10 * time.Second
	}
	if c.Directory.Timeout == 0 {
		c.Directory.Timeout = 5 * time.Second
	}
	if c.Directory.RefreshInterval == 0 {
		c.Directory.RefreshInterval = time.Minute
	}
	if c.History.RetentionDays == 0 {
		c.History.RetentionDays = 120
	}
	if c.History.CommentlessCap == 0 {
		c.History.CommentlessCap = 15
	}
	if c.History.SearchLimit == 0 {
		c.History.SearchLimit = 100
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Bridge.Host == "" {
		return fmt.Errorf("bridge.host is required")
	}
	if c.Users.Host == "" {
		return fmt.Errorf("users.host is required")
	}
	if c.Scenarios.Host == "" {
		return fmt.Errorf("scenarios.host is required")
	}
	if c.Directory.Host == "" {
		return fmt.Errorf("directory.host is required")
	}
	if c.Tracker.Host != "" && c.Tracker.ProjectID == "" {
		return fmt.Errorf("tracker.project_id is required when tracker.host is set")
	}
	return nil
}
