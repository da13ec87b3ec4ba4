package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/routervault/routervault/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Database.Path != "./data/routervault.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Storage.Path != "./data/storage" {
		t.Errorf("storage path = %q", cfg.Storage.Path)
	}
	if cfg.Scheduler.DefaultForceDays != 3 {
		t.Errorf("default force days = %d, want 3", cfg.Scheduler.DefaultForceDays)
	}
	if got := cfg.Scheduler.GetTickInterval(); got != 5*time.Minute {
		t.Errorf("tick interval = %v, want 5m", got)
	}
	if got := cfg.Scheduler.GetAlertDedupeWindow(); got != time.Hour {
		t.Errorf("dedupe window = %v, want 1h", got)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  host: 127.0.0.1
  port: 9090
scheduler:
  tick_interval: 30s
  mock_mode: true
security:
  encryption_key: deadbeef
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if got := cfg.Scheduler.GetTickInterval(); got != 30*time.Second {
		t.Errorf("tick interval = %v, want 30s", got)
	}
	if !cfg.Scheduler.MockMode {
		t.Error("mock mode not parsed")
	}
	if cfg.Security.EncryptionKey != "deadbeef" {
		t.Errorf("encryption key = %q", cfg.Security.EncryptionKey)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q", cfg.Logging.Level)
	}
	// Unset sections still get their defaults.
	if cfg.Database.Path != "./data/routervault.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestTickIntervalFallback(t *testing.T) {
	c := config.SchedulerConfig{TickInterval: "nonsense"}
	if got := c.GetTickInterval(); got != 5*time.Minute {
		t.Errorf("unparsable interval should fall back to 5m, got %v", got)
	}
	c = config.SchedulerConfig{TickInterval: "-1m"}
	if got := c.GetTickInterval(); got != 5*time.Minute {
		t.Errorf("negative interval should fall back to 5m, got %v", got)
	}
}
