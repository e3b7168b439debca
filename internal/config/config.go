// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ballastfund/ballast/internal/domain"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	Asset domain.Asset // The single custodied asset this manager is bound to
	Fund  domain.Principal
	Owner domain.Principal

	TiltParams domain.TiltParameters
	BandParams domain.RebalanceBandParameters

	Backup *BackupConfig

	// Cron schedules for background jobs
	RiskRefreshSchedule   string
	DriftMonitorSchedule  string
	WALCheckpointSchedule string
	BackupSchedule        string
}

// BackupConfig holds S3-compatible backup storage configuration.
// Works against AWS S3, Cloudflare R2 or minio via the endpoint override.
type BackupConfig struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	RetainCount     int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("BALLAST_DATA_DIR", "")
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
		DataDir:  absDataDir,
		Port:     getEnvAsInt("BALLAST_PORT", 8010),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		Asset: domain.Asset(getEnv("BALLAST_ASSET", "USDC")),
		Fund:  domain.Principal(getEnv("BALLAST_FUND_PRINCIPAL", "fund")),
		Owner: domain.Principal(getEnv("BALLAST_OWNER_PRINCIPAL", "owner")),

		TiltParams: domain.TiltParameters{
			MaxTiltBps:   uint32(getEnvAsInt("BALLAST_MAX_TILT_BPS", 1500)),
			MaxStepBps:   uint32(getEnvAsInt("BALLAST_MAX_STEP_BPS", 500)),
			TiltCooldown: getEnvAsDuration("BALLAST_TILT_COOLDOWN", 6*time.Hour),
		},
		BandParams: domain.RebalanceBandParameters{
			RebalanceBandBps:    uint32(getEnvAsInt("BALLAST_BAND_BPS", 200)),
			MinRebalanceBandBps: uint32(getEnvAsInt("BALLAST_MIN_BAND_BPS", 50)),
			MaxRebalanceBandBps: uint32(getEnvAsInt("BALLAST_MAX_BAND_BPS", 1000)),
			BandUpdateCooldown:  getEnvAsDuration("BALLAST_BAND_COOLDOWN", 24*time.Hour),
		},

		Backup: loadBackupConfig(),

		RiskRefreshSchedule:   getEnv("BALLAST_RISK_REFRESH_SCHEDULE", "@every 15m"),
		DriftMonitorSchedule:  getEnv("BALLAST_DRIFT_MONITOR_SCHEDULE", "@every 5m"),
		WALCheckpointSchedule: getEnv("BALLAST_WAL_CHECKPOINT_SCHEDULE", "@hourly"),
		BackupSchedule:        getEnv("BALLAST_BACKUP_SCHEDULE", "@daily"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and coherent
func (c *Config) Validate() error {
	if c.Asset == "" {
		return fmt.Errorf("BALLAST_ASSET must not be empty")
	}
	if c.Fund == "" || c.Owner == "" {
		return fmt.Errorf("fund and owner principals must not be empty")
	}
	if c.BandParams.MinRebalanceBandBps > c.BandParams.MaxRebalanceBandBps {
		return fmt.Errorf("min band %d exceeds max band %d",
			c.BandParams.MinRebalanceBandBps, c.BandParams.MaxRebalanceBandBps)
	}
	if c.BandParams.RebalanceBandBps < c.BandParams.MinRebalanceBandBps ||
		c.BandParams.RebalanceBandBps > c.BandParams.MaxRebalanceBandBps {
		return fmt.Errorf("band %d outside [%d, %d]",
			c.BandParams.RebalanceBandBps,
			c.BandParams.MinRebalanceBandBps, c.BandParams.MaxRebalanceBandBps)
	}
	if c.Backup != nil && c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("BALLAST_BACKUP_BUCKET required when backups are enabled")
		}
	}
	return nil
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BALLAST_BACKUP_ENABLED", false),
		Endpoint:        getEnv("BALLAST_BACKUP_ENDPOINT", ""),
		Region:          getEnv("BALLAST_BACKUP_REGION", "auto"),
		Bucket:          getEnv("BALLAST_BACKUP_BUCKET", ""),
		AccessKeyID:     getEnv("BALLAST_BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BALLAST_BACKUP_SECRET_ACCESS_KEY", ""),
		RetainCount:     getEnvAsInt("BALLAST_BACKUP_RETAIN", 14),
	}
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
