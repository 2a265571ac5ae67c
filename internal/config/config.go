package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime configuration, loaded from environment variables
type Config struct {
	// Chain node JSON-RPC endpoint
	NodeURL string `env:"NODE_URL" envDefault:"https://api.golos.cf"`

	// PostgreSQL connection string for the operation archive
	DatabaseURL string `env:"DATABASE_URL" envDefault:"postgres://localhost:5432/chainlens"`

	// API server port
	APIPort int `env:"API_PORT" envDefault:"8080"`

	// Log level ( debug, info, warn, error )
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Accounts to archive continuously, comma separated
	ArchiveAccounts []string `env:"ARCHIVE_ACCOUNTS" envSeparator:","`

	// Interval between archive sync passes
	ArchiveInterval time.Duration `env:"ARCHIVE_INTERVAL" envDefault:"1m"`

	// TTL for cached chain constants
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	// Per-exchange ticker request timeout
	TickerTimeout time.Duration `env:"TICKER_TIMEOUT" envDefault:"2s"`

	// History replay batch size
	HistoryBatchSize uint64 `env:"HISTORY_BATCH_SIZE" envDefault:"1000"`
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.NodeURL == "" {
		return fmt.Errorf("NODE_URL is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.APIPort < 1 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535, got %d", c.APIPort)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	if c.ArchiveInterval <= 0 {
		return fmt.Errorf("ARCHIVE_INTERVAL must be positive, got %s", c.ArchiveInterval)
	}
	if c.HistoryBatchSize < 2 {
		return fmt.Errorf("HISTORY_BATCH_SIZE must be at least 2, got %d", c.HistoryBatchSize)
	}
	return nil
}
