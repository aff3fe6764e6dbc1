package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"ELASTICOM_DATA_DIR", "GO_PORT", "LOG_LEVEL", "DEV_MODE", "CORS_ALLOWED_ORIGINS",
		"ELASTICITY_OUTLIER_FILTER", "ELASTICITY_OUTLIER_K", "REQUEST_TIMEOUT_SECONDS",
		"MAINTENANCE_SCHEDULE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("ELASTICOM_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.OutlierFilter)
	assert.Equal(t, DefaultOutlierK, cfg.OutlierK)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, DefaultMaintenanceSchedule, cfg.MaintenanceSchedule)
	assert.Equal(t, filepath.Join(dir, "transactions.db"), cfg.TransactionsDBPath())
	assert.Equal(t, filepath.Join(dir, "simulations.db"), cfg.SimulationsDBPath())
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "nested", "data")
	t.Setenv("ELASTICOM_DATA_DIR", dir)
	t.Setenv("GO_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("ELASTICITY_OUTLIER_FILTER", "1")
	t.Setenv("ELASTICITY_OUTLIER_K", "3")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "5")
	t.Setenv("MAINTENANCE_SCHEDULE", "@every 10m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.DirExists(t, dir)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.OutlierFilter)
	assert.Equal(t, 3.0, cfg.OutlierK)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "@every 10m", cfg.MaintenanceSchedule)
}

func TestLoad_UnparseableNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("ELASTICOM_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "eighty")
	t.Setenv("ELASTICITY_OUTLIER_K", "wide")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultOutlierK, cfg.OutlierK)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DataDir:             "/tmp/elasticom",
			Port:                8001,
			RequestTimeout:      time.Minute,
			OutlierK:            1.5,
			CORSAllowedOrigins:  []string{"*"},
			MaintenanceSchedule: DefaultMaintenanceSchedule,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"valid", func(c *Config) {}, ""},
		{"port out of range", func(c *Config) { c.Port = 70000 }, "GO_PORT"},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, "REQUEST_TIMEOUT_SECONDS"},
		{"negative outlier k", func(c *Config) { c.OutlierK = -1 }, "ELASTICITY_OUTLIER_K"},
		{"no origins", func(c *Config) { c.CORSAllowedOrigins = nil }, "CORS_ALLOWED_ORIGINS"},
		{"bad schedule", func(c *Config) { c.MaintenanceSchedule = "every hour" }, "MAINTENANCE_SCHEDULE"},
		{"five field schedule", func(c *Config) { c.MaintenanceSchedule = "0 * * * *" }, "MAINTENANCE_SCHEDULE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
