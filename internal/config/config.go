// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
// Analytic parameters (expense floor, allocation bands, trigger flags) are NOT
// here — they live in the database parameter store and are resolved per
// invocation. Config covers only process-level concerns.
type Config struct {
	DataDir  string // Base directory for the database and backup staging (always absolute)
	LogLevel string
	DevMode  bool

	// S3-compatible backup target (optional — backup disabled when incomplete)
	Backup BackupConfig
}

// BackupConfig holds credentials and settings for the cloud backup target.
// Works with any S3-compatible endpoint (AWS S3, Cloudflare R2, MinIO).
type BackupConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	RetentionDays   int
}

// Enabled reports whether enough of the backup target is configured to use it.
func (b BackupConfig) Enabled() bool {
	return b.AccessKeyID != "" && b.SecretAccessKey != "" && b.Bucket != ""
}

// DatabasePath returns the path of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "ballast.db")
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("BALLAST_DATA_DIR", "")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share", "ballast")
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory to absolute path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", absDataDir, err)
	}

	retentionDays := 90
	if v := getEnv("BALLAST_BACKUP_RETENTION_DAYS", ""); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BALLAST_BACKUP_RETENTION_DAYS %q: %w", v, err)
		}
		retentionDays = parsed
	}

	return &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("BALLAST_LOG_LEVEL", "info"),
		DevMode:  getEnv("BALLAST_DEV_MODE", "false") == "true",
		Backup: BackupConfig{
			Endpoint:        getEnv("BALLAST_S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("BALLAST_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BALLAST_S3_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("BALLAST_S3_BUCKET", ""),
			RetentionDays:   retentionDays,
		},
	}, nil
}

// getEnv retrieves an environment variable value, returning a fallback if the
// variable is not set or is empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
