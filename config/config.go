package config

import (
	"fmt"
	"net"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	ListenAddr      string
	Timeout         time.Duration
	UserAgent       string
	MaxBodySize     int // bytes, 0 means unlimited
	OutputDir       string
	OutputFormat    string // json or dual
	Persist         bool
	ResultCacheSize int
	StatusLogLines  int
	MetricsEnabled  bool
	Verbose         bool
	LogFile         string
	LogMaxSizeMB    int
	LogMaxBackups   int
}

// DefaultConfig returns the defaults used when nothing else is configured.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":3000",
		Timeout:         15 * time.Second,
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		MaxBodySize:     0,
		OutputDir:       "results",
		OutputFormat:    "json",
		Persist:         true,
		ResultCacheSize: 32,
		StatusLogLines:  15,
		MetricsEnabled:  true,
		Verbose:         false,
		LogFile:         "",
		LogMaxSizeMB:    10,
		LogMaxBackups:   3,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max body size cannot be negative")
	}
	if c.Persist && c.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty when persisting results")
	}
	if c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be json or dual")
	}
	if c.ResultCacheSize <= 0 {
		return fmt.Errorf("result cache size must be positive")
	}
	if c.StatusLogLines < 10 || c.StatusLogLines > 15 {
		return fmt.Errorf("status log lines must be between 10 and 15")
	}
	if c.LogFile != "" {
		if c.LogMaxSizeMB <= 0 {
			return fmt.Errorf("log max size must be positive")
		}
		if c.LogMaxBackups < 0 {
			return fmt.Errorf("log max backups cannot be negative")
		}
	}

	return nil
}
