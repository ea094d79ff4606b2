// Package config loads the server and CLI configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port            string        // HTTP port (default "8080")
	PostgresDSN     string        // lock history database, POSTGRES_DSN or DATABASE_URL
	RedisAddr       string        // plugin config store (default "localhost:6379")
	PageSize        int           // report rows per page (default 30)
	Threshold       string        // seeds tool_lockstats/threshold when Redis has none
	AutoMigrate     bool          // apply schema migrations on startup
	MetricsInterval time.Duration // history gauge refresh period (default 30s)
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:            getenv("PORT", "8080"),
		PostgresDSN:     strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		PageSize:        30,
		Threshold:       strings.TrimSpace(os.Getenv("LOCKSTATS_THRESHOLD")),
		MetricsInterval: 30 * time.Second,
	}

	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}

	if v := os.Getenv("LOCKSTATS_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid LOCKSTATS_PAGE_SIZE %q", v)
		}
		cfg.PageSize = n
	}

	if v := os.Getenv("LOCKSTATS_AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LOCKSTATS_AUTO_MIGRATE %q: %w", v, err)
		}
		cfg.AutoMigrate = b
	}

	if v := os.Getenv("LOCKSTATS_METRICS_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid LOCKSTATS_METRICS_INTERVAL %q", v)
		}
		cfg.MetricsInterval = d
	}

	if cfg.Threshold != "" {
		if _, err := strconv.ParseFloat(cfg.Threshold, 64); err != nil {
			return nil, fmt.Errorf("invalid LOCKSTATS_THRESHOLD %q: %w", cfg.Threshold, err)
		}
	}

	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.PostgresDSN == "" {
		return errors.New("POSTGRES_DSN is required")
	}

	return nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}

	return fallback
}
