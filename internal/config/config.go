// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration
type Config struct {
	DataDir        string // Base directory for databases (always absolute)
	CalibrationDir string // Relative calibration paths are resolved here
	LogLevel       string
	Port           int
	DevMode        bool
	Cache          CacheConfig
	S3             S3Config
}

// CacheConfig controls the persistent compiled-waveform cache
type CacheConfig struct {
	Enabled         bool
	TTL             time.Duration
	CleanupSchedule string // 6-field cron expression (seconds first)
}

// S3Config holds object-storage credentials for s3:// calibration paths.
// Leave Region and Endpoint empty to disable the S3 source.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether an S3 source should be created.
func (c S3Config) Enabled() bool {
	return c.Region != "" || c.Endpoint != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("QPULSE_DATA_DIR", "")
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
		DataDir:        absDataDir,
		CalibrationDir: getEnv("QPULSE_CALIBRATION_DIR", filepath.Join(absDataDir, "calibration")),
		Port:           getEnvAsInt("GO_PORT", 8001),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Cache: CacheConfig{
			Enabled:         getEnvAsBool("WAVEFORM_CACHE_ENABLED", true),
			TTL:             time.Duration(getEnvAsInt("WAVEFORM_CACHE_TTL_HOURS", 24)) * time.Hour,
			CleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "0 0 * * * *"),
		},
		S3: S3Config{
			Region:          getEnv("S3_REGION", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("invalid waveform cache TTL %s: must not be negative", c.Cache.TTL)
	}
	if c.Cache.Enabled {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Cache.CleanupSchedule); err != nil {
			return fmt.Errorf("invalid cache cleanup schedule %q: %w", c.Cache.CleanupSchedule, err)
		}
	}
	if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
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
