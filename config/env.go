package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}

// EnvBool parses key as a boolean.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, true, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}

// EnvDuration parses key as a duration. Bare integers are milliseconds.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond, true, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}

// ApplyEnv overrides cfg with any SCRAPER_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if value, ok := EnvString("SCRAPER_ADDR"); ok {
		cfg.ListenAddr = value
	} else if port, ok := EnvString("PORT"); ok {
		cfg.ListenAddr = ":" + port
	}
	if value, ok, err := EnvDuration("SCRAPER_TIMEOUT"); err != nil {
		return err
	} else if ok {
		cfg.Timeout = value
	}
	if value, ok := EnvString("SCRAPER_USER_AGENT"); ok {
		cfg.UserAgent = value
	}
	if value, ok, err := EnvInt("SCRAPER_MAX_BODY"); err != nil {
		return err
	} else if ok {
		cfg.MaxBodySize = value
	}
	if value, ok, err := EnvInt("SCRAPER_CACHE_SIZE"); err != nil {
		return err
	} else if ok {
		cfg.ResultCacheSize = value
	}
	if value, ok, err := EnvInt("SCRAPER_STATUS_LINES"); err != nil {
		return err
	} else if ok {
		cfg.StatusLogLines = value
	}
	if value, ok := EnvString("SCRAPER_OUTPUT_DIR"); ok {
		cfg.OutputDir = value
	}
	if value, ok := EnvString("SCRAPER_FORMAT"); ok {
		cfg.OutputFormat = strings.ToLower(value)
	}
	if value, ok, err := EnvBool("SCRAPER_PERSIST"); err != nil {
		return err
	} else if ok {
		cfg.Persist = value
	}
	if value, ok, err := EnvBool("SCRAPER_METRICS"); err != nil {
		return err
	} else if ok {
		cfg.MetricsEnabled = value
	}
	if value, ok := EnvString("SCRAPER_LOG_FILE"); ok {
		cfg.LogFile = value
	}
	return nil
}
