// Package config loads runtime configuration from environment variables,
// falling back to documented defaults. It is the one place this module
// reads the environment; every other package takes its configuration as
// explicit parameters.
package config

import (
	"os"
	"strconv"
)

// Config holds the module's runtime configuration.
type Config struct {
	StoreRoot  string
	LogLevel   string
	CaseType   string

	OracleBaseURL     string
	OracleAPIKey      string
	OracleModel       string
	OracleModelRevision string

	MaxConcurrent        int
	TimelineGapDays      int
	TemporalWindowHours  int

	RedisURL  string
	JWTSecret string

	IndexPath     string
	ArchiveMirror string // local dir, s3://bucket/prefix, or gs://bucket/prefix
}

// Load reads configuration from the environment, applying documented
// defaults where a variable is unset.
func Load() *Config {
	return &Config{
		StoreRoot: getenvDefault("STORE_ROOT", "./evidence-store"),
		LogLevel:  getenvDefault("LOG_LEVEL", "INFO"),
		CaseType:  getenvDefault("CASE_TYPE", "general"),

		OracleBaseURL:       getenvDefault("ORACLE_BASE_URL", "https://api.openai.com/v1"),
		OracleAPIKey:        os.Getenv("ORACLE_API_KEY"),
		OracleModel:         getenvDefault("ORACLE_MODEL", "gpt-4o-2024-08-06"),
		OracleModelRevision: getenvDefault("ORACLE_MODEL_REVISION", "gpt-4o-2024-08-06"),

		MaxConcurrent:       getenvIntDefault("MAX_CONCURRENT", 5),
		TimelineGapDays:     getenvIntDefault("TIMELINE_GAP_DAYS", 14),
		TemporalWindowHours: getenvIntDefault("TEMPORAL_WINDOW_HOURS", 72),

		RedisURL:  os.Getenv("REDIS_URL"),
		JWTSecret: os.Getenv("ORACLE_JWT_SECRET"),

		IndexPath:     os.Getenv("INDEX_PATH"),
		ArchiveMirror: os.Getenv("ARCHIVE_MIRROR"),
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvIntDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
