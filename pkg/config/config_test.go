package config_test

import (
	"testing"

	"github.com/evidence-toolkit/core/pkg/config"
	"github.com/stretchr/testify/assert"
)

// TestLoad_Defaults verifies that Load() returns the documented defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_ROOT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("CASE_TYPE", "")
	t.Setenv("ORACLE_API_KEY", "")
	t.Setenv("MAX_CONCURRENT", "")
	t.Setenv("TIMELINE_GAP_DAYS", "")
	t.Setenv("TEMPORAL_WINDOW_HOURS", "")

	cfg := config.Load()

	assert.Equal(t, "./evidence-store", cfg.StoreRoot)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "general", cfg.CaseType)
	assert.Equal(t, 5, cfg.MaxConcurrent)
	assert.Equal(t, 14, cfg.TimelineGapDays)
	assert.Equal(t, 72, cfg.TemporalWindowHours)
	assert.Empty(t, cfg.OracleAPIKey)
}

// TestLoad_Overrides verifies that environment variables override defaults.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_ROOT", "/data/evidence")
	t.Setenv("CASE_TYPE", "workplace")
	t.Setenv("MAX_CONCURRENT", "10")
	t.Setenv("TIMELINE_GAP_DAYS", "7")
	t.Setenv("ORACLE_API_KEY", "sk-test-key")

	cfg := config.Load()

	assert.Equal(t, "/data/evidence", cfg.StoreRoot)
	assert.Equal(t, "workplace", cfg.CaseType)
	assert.Equal(t, 10, cfg.MaxConcurrent)
	assert.Equal(t, 7, cfg.TimelineGapDays)
	assert.Equal(t, "sk-test-key", cfg.OracleAPIKey)
}

// TestLoad_InvalidIntFallsBackToDefault verifies malformed integer env vars
// degrade to the default rather than panicking.
func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("MAX_CONCURRENT", "not-a-number")
	cfg := config.Load()
	assert.Equal(t, 5, cfg.MaxConcurrent)
}
