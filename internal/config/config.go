// Package config loads the engine configuration from a YAML file with
// environment variable overrides (prefix XELMA_).
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Oracle  OracleConfig  `mapstructure:"oracle"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig holds persistence configuration. An empty DatabaseURL
// selects the in-memory store; RedisURL optionally enables the
// read-through cache in front of PostgreSQL.
type StorageConfig struct {
	DatabaseURL string        `mapstructure:"database_url"`
	RedisURL    string        `mapstructure:"redis_url"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

// LedgerConfig holds the synthetic ledger clock configuration. The clock
// derives a ledger sequence number from wall time: sequence = elapsed
// since genesis divided by the close interval.
type LedgerConfig struct {
	CloseInterval time.Duration `mapstructure:"close_interval"`
	GenesisUnix   int64         `mapstructure:"genesis_unix"` // 0 = process start
}

// OracleConfig holds oracle report validation configuration.
type OracleConfig struct {
	MaxReportAge uint64 `mapstructure:"max_report_age"` // seconds
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional file and environment
// variables. An empty path uses defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("XELMA")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("storage.database_url", "")
	v.SetDefault("storage.redis_url", "")
	v.SetDefault("storage.cache_ttl", "30s")

	v.SetDefault("ledger.close_interval", "5s")
	v.SetDefault("ledger.genesis_unix", 0)

	v.SetDefault("oracle.max_report_age", 300)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Storage.RedisURL != "" && c.Storage.DatabaseURL == "" {
		return fmt.Errorf("storage.redis_url requires storage.database_url")
	}
	if c.Storage.CacheTTL <= 0 {
		return fmt.Errorf("storage.cache_ttl must be positive")
	}
	if c.Ledger.CloseInterval < time.Second {
		return fmt.Errorf("ledger.close_interval must be at least 1s")
	}
	if c.Oracle.MaxReportAge == 0 {
		return fmt.Errorf("oracle.max_report_age must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
