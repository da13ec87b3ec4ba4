// Package config loads the server configuration from a YAML file.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Security  SecurityConfig  `yaml:"security"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type SchedulerConfig struct {
	TickInterval      string `yaml:"tick_interval"`
	DefaultForceDays  int    `yaml:"default_force_days"`
	AlertDedupeWindow string `yaml:"alert_dedupe_window"`
	MockMode          bool   `yaml:"mock_mode"`
}

type SecurityConfig struct {
	// EncryptionKey is a 64-character hex string (32 bytes, AES-256).
	EncryptionKey string `yaml:"encryption_key"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GetTickInterval parses the scheduler tick interval, defaulting to 5 minutes.
func (c *SchedulerConfig) GetTickInterval() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// GetAlertDedupeWindow parses the alert dedupe window, defaulting to 1 hour.
func (c *SchedulerConfig) GetAlertDedupeWindow() time.Duration {
	d, err := time.ParseDuration(c.AlertDedupeWindow)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// Load reads configuration from path. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	setDefaults(&cfg)

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/routervault.db"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "./data/storage"
	}
	if cfg.Scheduler.TickInterval == "" {
		cfg.Scheduler.TickInterval = "5m"
	}
	if cfg.Scheduler.DefaultForceDays == 0 {
		cfg.Scheduler.DefaultForceDays = 3
	}
	if cfg.Scheduler.AlertDedupeWindow == "" {
		cfg.Scheduler.AlertDedupeWindow = "1h"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
