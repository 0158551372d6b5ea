// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir string // Base directory for caches and artifacts (always absolute)

	Port     int
	LogLevel string
	DevMode  bool

	// Provider endpoints
	ProviderBaseURL string // scheme directory + quote/detail endpoints
	HistoryBaseURL  string // historical NAV endpoint

	// Pipeline tuning
	FilterWorkers    int     // workers for the active-scheme filter
	MetricsWorkers   int     // workers for metrics batch runs
	RiskFreeRate     float64 // annual risk-free rate for Sharpe/Sortino
	CheckpointEvery  int     // cache checkpoint interval (processed codes)
	RefreshSchedule  string  // cron spec for the nightly masterlist refresh
	CleanupSchedule  string  // cron spec for client cache cleanup
	ScheduleDisabled bool    // disable cron jobs (useful for one-shot runs)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FUNDLENS_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("GO_PORT", 8001),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		ProviderBaseURL:  getEnv("PROVIDER_BASE_URL", "https://api.mfapi.in"),
		HistoryBaseURL:   getEnv("HISTORY_BASE_URL", ""),
		FilterWorkers:    getEnvAsInt("FILTER_WORKERS", 20),
		MetricsWorkers:   getEnvAsInt("METRICS_WORKERS", 8),
		RiskFreeRate:     getEnvAsFloat("RISK_FREE_RATE", 0.06),
		CheckpointEvery:  getEnvAsInt("CHECKPOINT_EVERY", 200),
		RefreshSchedule:  getEnv("REFRESH_SCHEDULE", "0 0 2 * * *"),
		CleanupSchedule:  getEnv("CLEANUP_SCHEDULE", "0 30 3 * * *"),
		ScheduleDisabled: getEnvAsBool("SCHEDULE_DISABLED", false),
	}

	// Historical NAV endpoint defaults to the provider base URL
	if cfg.HistoryBaseURL == "" {
		cfg.HistoryBaseURL = cfg.ProviderBaseURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.FilterWorkers <= 0 {
		return fmt.Errorf("FILTER_WORKERS must be positive, got %d", c.FilterWorkers)
	}
	if c.MetricsWorkers <= 0 {
		return fmt.Errorf("METRICS_WORKERS must be positive, got %d", c.MetricsWorkers)
	}
	if c.CheckpointEvery <= 0 {
		return fmt.Errorf("CHECKPOINT_EVERY must be positive, got %d", c.CheckpointEvery)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
