package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Ledger.CloseInterval != 5*time.Second {
		t.Errorf("expected default close interval 5s, got %s", cfg.Ledger.CloseInterval)
	}
	if cfg.Oracle.MaxReportAge != 300 {
		t.Errorf("expected default max report age 300, got %d", cfg.Oracle.MaxReportAge)
	}
	if cfg.Storage.CacheTTL != 30*time.Second {
		t.Errorf("expected default cache ttl 30s, got %s", cfg.Storage.CacheTTL)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: "9090"
ledger:
  close_interval: 2s
oracle:
  max_report_age: 60
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Ledger.CloseInterval != 2*time.Second {
		t.Errorf("expected close interval 2s, got %s", cfg.Ledger.CloseInterval)
	}
	if cfg.Oracle.MaxReportAge != 60 {
		t.Errorf("expected max report age 60, got %d", cfg.Oracle.MaxReportAge)
	}
	// Untouched sections keep their defaults.
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level, got %s", cfg.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate_Rejects(t *testing.T) {
	base := func() *Config {
		cfg, _ := Load("")
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"redis without postgres", func(c *Config) { c.Storage.RedisURL = "redis://localhost:6379" }},
		{"sub-second close interval", func(c *Config) { c.Ledger.CloseInterval = 100 * time.Millisecond }},
		{"zero max report age", func(c *Config) { c.Oracle.MaxReportAge = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
