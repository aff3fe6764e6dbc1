// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/aristath/elasticom/internal/utils"
)

// Default values used when the environment does not set them
const (
	DefaultDataDir             = "./data"
	DefaultPort                = 8001
	DefaultOutlierK            = 1.5
	DefaultRequestTimeout      = 60
	DefaultMaintenanceSchedule = "0 0 * * * *" // hourly, seconds field first
)

// Config holds application configuration
type Config struct {
	DataDir             string // Base directory for both databases (always absolute)
	LogLevel            string
	MaintenanceSchedule string
	CORSAllowedOrigins  []string
	Port                int
	RequestTimeout      time.Duration
	OutlierK            float64
	OutlierFilter       bool
	DevMode             bool
}

// ValidationError reports a configuration value that cannot be used
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Message)
}

// cronParser accepts the same expressions as the scheduler
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Load reads configuration from the environment and an optional .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("ELASTICOM_DATA_DIR", "")
	if dataDir == "" {
		dataDir = DefaultDataDir
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		Port:                getEnvAsInt("GO_PORT", DefaultPort),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins:  utils.ParseCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		OutlierFilter:       getEnvAsBool("ELASTICITY_OUTLIER_FILTER", false),
		OutlierK:            getEnvAsFloat("ELASTICITY_OUTLIER_K", DefaultOutlierK),
		RequestTimeout:      time.Duration(getEnvAsInt("REQUEST_TIMEOUT_SECONDS", DefaultRequestTimeout)) * time.Second,
		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", DefaultMaintenanceSchedule),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every value is usable
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return &ValidationError{Field: "ELASTICOM_DATA_DIR", Message: "must not be empty"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ValidationError{Field: "GO_PORT", Message: fmt.Sprintf("%d is not a valid port", c.Port)}
	}
	if c.RequestTimeout <= 0 {
		return &ValidationError{Field: "REQUEST_TIMEOUT_SECONDS", Message: "must be positive"}
	}
	if c.OutlierK <= 0 {
		return &ValidationError{Field: "ELASTICITY_OUTLIER_K", Message: "must be positive"}
	}
	if len(c.CORSAllowedOrigins) == 0 {
		return &ValidationError{Field: "CORS_ALLOWED_ORIGINS", Message: "at least one origin is required"}
	}
	if _, err := cronParser.Parse(c.MaintenanceSchedule); err != nil {
		return &ValidationError{Field: "MAINTENANCE_SCHEDULE", Message: err.Error()}
	}
	return nil
}

// TransactionsDBPath is the location of the sales history database
func (c *Config) TransactionsDBPath() string {
	return filepath.Join(c.DataDir, "transactions.db")
}

// SimulationsDBPath is the location of the saved scenario database
func (c *Config) SimulationsDBPath() string {
	return filepath.Join(c.DataDir, "simulations.db")
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
