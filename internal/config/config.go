// Package config loads server settings from defaults, an optional YAML file
// named by FIELDINSIGHTS_CONFIG, and environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`

	SessionTTL     time.Duration `yaml:"session_ttl"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RulesCacheTTL  time.Duration `yaml:"rules_cache_ttl"`

	Models ModelConfig `yaml:"models"`
}

// ModelConfig points at the optional statistical models. Empty paths mean
// the rule-based strategies are used.
type ModelConfig struct {
	YieldPath  string `yaml:"yield_path"`
	HealthPath string `yaml:"health_path"`

	// YieldURL selects a remote yield model; it wins over YieldPath
	YieldURL           string        `yaml:"yield_url"`
	RemoteTimeout      time.Duration `yaml:"remote_timeout"`
	RemoteRetries      int           `yaml:"remote_retries"`
	BreakerFailures    uint32        `yaml:"breaker_failures"`
	BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Port:           "8080",
		SessionTTL:     30 * time.Minute,
		RequestTimeout: 60 * time.Second,
		RulesCacheTTL:  5 * time.Minute,
		Models: ModelConfig{
			RemoteTimeout:      2 * time.Second,
			RemoteRetries:      2,
			BreakerFailures:    5,
			BreakerOpenTimeout: 30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the file named by
// FIELDINSIGHTS_CONFIG (if set) and environment overrides
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("FIELDINSIGHTS_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("YIELD_MODEL_PATH"); v != "" {
		c.Models.YieldPath = v
	}
	if v := os.Getenv("HEALTH_MODEL_PATH"); v != "" {
		c.Models.HealthPath = v
	}
	if v := os.Getenv("YIELD_MODEL_URL"); v != "" {
		c.Models.YieldURL = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
		c.SessionTTL = ttl
	}
	return nil
}

// Validate rejects settings the server cannot run with
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port must be set")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port %q is not a number", c.Port)
	}
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.Models.RemoteRetries < 0 {
		return errors.New("models.remote_retries must not be negative")
	}
	return nil
}

// UsePostgres reports whether a database is configured
func (c Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}
