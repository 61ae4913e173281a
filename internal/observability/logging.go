// Package observability is Sonicat's shared logging setup: every worker and
// the scheduler build their *zap.SugaredLogger through this package so
// structured fields ({timestamp, worker, task_id, asset_id, msg}, spec §7)
// land in the same JSON shape everywhere. Carried from the teacher's
// internal/observability/logging.go unchanged in spirit — same encoder
// config, same level-string convention — generalized to also target the
// per-worker log file layout spec §6 requires
// (<sonicat_path>/log/<type>/YYYY-MM-DD-<moniker>.log) instead of stdout
// only.
package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogPath returns the spec §6 log file path for a given worker type and
// moniker, rooted at sonicatPath, for "today" (as of calling).
func LogPath(sonicatPath, workerType, moniker string) string {
	date := time.Now().Format("2006-01-02")
	return filepath.Join(sonicatPath, "log", workerType, fmt.Sprintf("%s-%s.log", date, moniker))
}

// NewFileLogger builds a logger like NewLogger but additionally appending to
// the spec §6 log file for (workerType, moniker) under sonicatPath, creating
// parent directories as needed.
func NewFileLogger(level, sonicatPath, workerType, moniker string) (*zap.SugaredLogger, error) {
	path := LogPath(sonicatPath, workerType, moniker)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir log dir: %w", err)
	}
	cfg := buildConfig(level)
	cfg.OutputPaths = append(cfg.OutputPaths, path)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Sugar(), nil
}

func buildConfig(level string) zap.Config {
	lvl := zapcore.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "info":
		lvl = zapcore.InfoLevel
	case "warn", "warning":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	return zap.Config{
		Level:       zap.NewAtomicLevelAt(lvl),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         "json",
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// NewLogger creates a sugared logger with the given level: debug|info|warn|error.
func NewLogger(level string) *zap.SugaredLogger {
	cfg := buildConfig(level)
	logger, err := cfg.Build()
	if err != nil {
		// Fallback to a basic logger if configuration fails
		fallback, _ := zap.NewProduction()
		return fallback.Sugar()
	}
	return logger.Sugar()
}

// EnvLogLevel returns log level from LOG_LEVEL or default if unset.
func EnvLogLevel(def string) string {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		return v
	}
	return def
}
