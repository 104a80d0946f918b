package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stridesync/internal/retry"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Remote     RemoteConfig     `yaml:"remote"`
	Sync       SyncConfig       `yaml:"sync"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type RemoteConfig struct {
	BaseURL        string  `yaml:"base_url"`
	Token          string  `yaml:"token"`
	RPS            float64 `yaml:"rps"`
	Burst          int     `yaml:"burst"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type SyncConfig struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	MaxAttempts     int     `yaml:"max_attempts"`
	BaseDelayMs     int     `yaml:"base_delay_ms"`
	MaxDelayMs      int     `yaml:"max_delay_ms"`
	JitterFactor    float64 `yaml:"jitter_factor"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

// Load reads the YAML config, expanding ${ENV} references after merging a
// .env file when one exists next to the process.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Remote.BaseURL == "" {
		return errors.New("remote base_url is required")
	}
	if c.Sync.JitterFactor < 0 || c.Sync.JitterFactor > 1 {
		return fmt.Errorf("sync jitter_factor %v out of range [0,1]", c.Sync.JitterFactor)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "stridesync"
	}
	if c.Sync.IntervalSeconds == 0 {
		c.Sync.IntervalSeconds = 30
	}
	if c.Sync.MaxAttempts == 0 {
		c.Sync.MaxAttempts = 5
	}
	if c.Sync.BaseDelayMs == 0 {
		c.Sync.BaseDelayMs = 1000
	}
	if c.Sync.MaxDelayMs == 0 {
		c.Sync.MaxDelayMs = 60000
	}
	if c.Sync.JitterFactor == 0 {
		c.Sync.JitterFactor = 0.2
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}

// RetryConfig converts the sync section into the engine's retry settings.
func (c *Config) RetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  c.Sync.MaxAttempts,
		BaseDelay:    time.Duration(c.Sync.BaseDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(c.Sync.MaxDelayMs) * time.Millisecond,
		JitterFactor: c.Sync.JitterFactor,
	}
}

// Interval returns the background retry loop cadence.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Sync.IntervalSeconds) * time.Second
}
