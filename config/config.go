// Package config loads sweep settings from the environment. A .env file in
// the working directory is honored when present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration for a sweep run.
type Config struct {
	// Optimizer selects the search backend: "remote" or "local".
	Optimizer string

	// Remote service settings; ServiceCredential is passed through
	// opaquely and never logged.
	ServiceURL        string
	ServiceCredential string
	ServiceTimeout    time.Duration
	RequestsPerMinute int

	// Evaluation settings.
	TrainPath   string
	TestPath    string
	IDsPath     string
	LabelColumn string
	GroupColumn string
	Folds       int
	Patience    int
	MaxRounds   int
	FoldWorkers int
	Seed        int64
	CacheSize   int

	// Persistence and observability.
	HistoryPath string
	SpacePath   string
	MetricsAddr string
	LogLevel    string
	LogFormat   string
}

// Load reads configuration from the environment. A missing .env file is not
// an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Optimizer:         getEnv("SWEEP_OPTIMIZER", "local"),
		ServiceURL:        getEnv("SWEEP_SERVICE_URL", ""),
		ServiceCredential: getEnv("SWEEP_SERVICE_CREDENTIAL", ""),
		ServiceTimeout:    getEnvDuration("SWEEP_SERVICE_TIMEOUT", "30s"),
		RequestsPerMinute: getEnvInt("SWEEP_REQUESTS_PER_MINUTE", 120),
		TrainPath:         getEnv("SWEEP_TRAIN_PATH", "train_features.csv"),
		TestPath:          getEnv("SWEEP_TEST_PATH", "test_features.csv"),
		IDsPath:           getEnv("SWEEP_IDS_PATH", "test_ids.csv"),
		LabelColumn:       getEnv("SWEEP_LABEL_COLUMN", "label"),
		GroupColumn:       getEnv("SWEEP_GROUP_COLUMN", "group_id"),
		Folds:             getEnvInt("SWEEP_FOLDS", 5),
		Patience:          getEnvInt("SWEEP_PATIENCE", 100),
		MaxRounds:         getEnvInt("SWEEP_MAX_ROUNDS", 10000),
		FoldWorkers:       getEnvInt("SWEEP_FOLD_WORKERS", 1),
		Seed:              getEnvInt64("SWEEP_SEED", 42),
		CacheSize:         getEnvInt("SWEEP_CACHE_SIZE", 256),
		HistoryPath:       getEnv("SWEEP_HISTORY_PATH", "sweep_history.db"),
		SpacePath:         getEnv("SWEEP_SPACE_PATH", ""),
		MetricsAddr:       getEnv("SWEEP_METRICS_ADDR", ""),
		LogLevel:          getEnv("SWEEP_LOG_LEVEL", "info"),
		LogFormat:         getEnv("SWEEP_LOG_FORMAT", "json"),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 gets a 64-bit integer environment variable with a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
