// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/aristath/yieldwatch/internal/domain"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for the portfolio database (always absolute)
	MarketDataURL    string // Base URL of the yields API
	LogLevel         string
	Port             int
	DevMode          bool
	AnalysisSchedule string // cron spec for the periodic analysis sweep
	Engine           domain.EngineConfig
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("YIELDWATCH_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	defaults := domain.DefaultEngineConfig()

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("YIELDWATCH_PORT", 8080),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		MarketDataURL:    getEnv("MARKET_DATA_URL", "https://yields.llama.fi"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		AnalysisSchedule: getEnv("ANALYSIS_SCHEDULE", "@hourly"),
		Engine: domain.EngineConfig{
			YieldChangeThresholdPct: getEnvAsFloat("YIELD_CHANGE_THRESHOLD_PCT", defaults.YieldChangeThresholdPct),
			RiskChangeThreshold:     getEnvAsFloat("RISK_CHANGE_THRESHOLD", defaults.RiskChangeThreshold),
			RebalanceIntervalDays:   getEnvAsInt("REBALANCE_INTERVAL_DAYS", defaults.RebalanceIntervalDays),
			MinRebalanceAmount:      getEnvAsFloat("MIN_REBALANCE_AMOUNT", defaults.MinRebalanceAmount),
			SignificantChangePct:    getEnvAsFloat("SIGNIFICANT_CHANGE_PCT", defaults.SignificantChangePct),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.Engine.YieldChangeThresholdPct <= 0 {
		return fmt.Errorf("yield change threshold must be positive, got %.2f", c.Engine.YieldChangeThresholdPct)
	}
	if c.Engine.RiskChangeThreshold <= 0 {
		return fmt.Errorf("risk change threshold must be positive, got %.2f", c.Engine.RiskChangeThreshold)
	}
	if c.Engine.RebalanceIntervalDays <= 0 {
		return fmt.Errorf("rebalance interval must be positive, got %d", c.Engine.RebalanceIntervalDays)
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
