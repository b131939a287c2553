package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Address != ":8080" {
		t.Errorf("server address = %q", cfg.Server.Address)
	}
	if cfg.Metrics.Address != ":9090" {
		t.Errorf("metrics address = %q", cfg.Metrics.Address)
	}
	if cfg.History.RetentionDays != 120 || cfg.History.CommentlessCap != 15 {
		t.Errorf("history config = %+v", cfg.History)
	}
	if cfg.Bridge.RefreshTimeout != 5*time.Second || cfg.Bridge.ForceTimeout != 10*time.Second {
		t.Errorf("bridge timeouts = %+v", cfg.Bridge)
	}

	// Defaults alone are not a runnable config: collaborator hosts
	// must come from the file.
	if err := cfg.Validate(); err == nil {
		t.Error("config without collaborator hosts must not validate")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  address: ":8081"
database:
  path: /tmp/alertops.db
bridge:
  host: http://bridge:8000
users:
  host: http://users:8000
scenarios:
  host: http://scenarios:8000
  cache_ttl: 1m
directory:
  host: http://studios:8000
  refresh_interval: 30s
history:
  retention_days: 90
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.Address != ":8081" {
		t.Errorf("server address = %q", cfg.Server.Address)
	}
	if cfg.History.RetentionDays != 90 {
		t.Errorf("retention days = %d", cfg.History.RetentionDays)
	}
	if cfg.History.CommentlessCap != 15 {
		t.Errorf("commentless cap default = %d", cfg.History.CommentlessCap)
	}
	if cfg.Directory.RefreshInterval != 30*time.Second {
		t.Errorf("refresh interval = %v", cfg.Directory.RefreshInterval)
	}
	if cfg.Scenarios.CacheTTL != time.Minute {
		t.Errorf("cache ttl = %v", cfg.Scenarios.CacheTTL)
	}
}

func TestLoadConfig_TrackerNeedsProject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
bridge:
  host: http://bridge:8000
users:
  host: http://users:8000
scenarios:
  host: http://scenarios:8000
directory:
  host: http://studios:8000
tracker:
  host: http://jira:8000
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("tracker host without project id must not validate")
	}
}
