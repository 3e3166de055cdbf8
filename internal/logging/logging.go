// Package logging provides a single process-wide zap logger, initialized
// once and shared by every component.
package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once   sync.Once
	logger *zap.Logger
)

// Init constructs the process-wide logger at the given level
// ("debug", "info", "warn", "error"; unrecognized values fall back to
// "info"). Subsequent calls are no-ops; use L() to retrieve the logger
// from anywhere in the process.
func Init(level string) *zap.Logger {
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
		built, err := cfg.Build()
		if err != nil {
			built = zap.NewNop()
		}
		logger = built
	})
	return logger
}

// L returns the process-wide logger, initializing it at info level if
// Init has not yet been called.
func L() *zap.Logger {
	if logger == nil {
		return Init("info")
	}
	return logger
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
