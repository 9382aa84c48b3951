package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration
type Config struct {
	Level  string
	Format string // "json" or "console"
	Output string // "stdout" or "stderr"
}

// NewLogger creates a structured zap logger.
func NewLogger(config Config) (*zap.Logger, error) {
	if config.Format == "" {
		config.Format = "console"
	}
	if config.Output == "" {
		config.Output = "stderr"
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = parseLevel(config.Level)
	zapConfig.Encoding = config.Format
	zapConfig.OutputPaths = []string{config.Output}
	zapConfig.ErrorOutputPaths = []string{config.Output}
	zapConfig.DisableCaller = true
	zapConfig.DisableStacktrace = true
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapConfig.Build()
}

// parseLevel parses a zap level from string
func parseLevel(level string) zap.AtomicLevel {
	switch level {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}

// LogEvaluation logs one completed objective evaluation.
func LogEvaluation(log *zap.Logger, configurationID string, score float64, folds int, duration time.Duration, cached bool) {
	log.Info("evaluation completed",
		zap.String("configuration_id", configurationID),
		zap.Float64("score", score),
		zap.Int("folds", folds),
		zap.Duration("duration", duration),
		zap.Bool("cached", cached),
	)
}

// LogRemoteCall logs one call to the optimization service.
func LogRemoteCall(log *zap.Logger, operation, taskID string, status int, duration time.Duration) {
	log.Debug("optimizer call completed",
		zap.String("operation", operation),
		zap.String("task_id", taskID),
		zap.Int("status", status),
		zap.Duration("duration", duration),
	)
}
