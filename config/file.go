package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors the TOML layout. Pointers distinguish unset keys from
// zero values so the file only overrides what it names.
type fileConfig struct {
	Server struct {
		Addr    *string `toml:"addr"`
		Metrics *bool   `toml:"metrics"`
	} `toml:"server"`
	Fetch struct {
		Timeout     *string `toml:"timeout"`
		UserAgent   *string `toml:"user_agent"`
		MaxBodySize *int    `toml:"max_body_size"`
	} `toml:"fetch"`
	Output struct {
		Dir       *string `toml:"dir"`
		Format    *string `toml:"format"`
		Persist   *bool   `toml:"persist"`
		CacheSize *int    `toml:"cache_size"`
	} `toml:"output"`
	Status struct {
		LogLines *int `toml:"log_lines"`
	} `toml:"status"`
	Log struct {
		Verbose    *bool   `toml:"verbose"`
		File       *string `toml:"file"`
		MaxSizeMB  *int    `toml:"max_size_mb"`
		MaxBackups *int    `toml:"max_backups"`
	} `toml:"log"`
}

// LoadFile reads a TOML configuration file on top of DefaultConfig.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := Decode(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Decode applies TOML data onto cfg.
func Decode(data []byte, cfg *Config) error {
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return err
	}

	setString(&cfg.ListenAddr, fc.Server.Addr)
	setBool(&cfg.MetricsEnabled, fc.Server.Metrics)
	if fc.Fetch.Timeout != nil {
		timeout, err := time.ParseDuration(strings.TrimSpace(*fc.Fetch.Timeout))
		if err != nil {
			return fmt.Errorf("fetch.timeout: %w", err)
		}
		cfg.Timeout = timeout
	}
	setString(&cfg.UserAgent, fc.Fetch.UserAgent)
	setInt(&cfg.MaxBodySize, fc.Fetch.MaxBodySize)
	setString(&cfg.OutputDir, fc.Output.Dir)
	if fc.Output.Format != nil {
		cfg.OutputFormat = strings.ToLower(*fc.Output.Format)
	}
	setBool(&cfg.Persist, fc.Output.Persist)
	setInt(&cfg.ResultCacheSize, fc.Output.CacheSize)
	setInt(&cfg.StatusLogLines, fc.Status.LogLines)
	setBool(&cfg.Verbose, fc.Log.Verbose)
	setString(&cfg.LogFile, fc.Log.File)
	setInt(&cfg.LogMaxSizeMB, fc.Log.MaxSizeMB)
	setInt(&cfg.LogMaxBackups, fc.Log.MaxBackups)
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
