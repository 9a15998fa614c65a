// Package logger builds the application's zap loggers.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger. Development mode switches to the console
// encoder with colored levels.
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config

	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	return cfg.Build()
}

// ForRun returns a child logger scoped to one simulation run, so every
// line it emits carries the run id.
func ForRun(log *zap.Logger, runID string) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log.Named("run").With(zap.String("run_id", runID))
}
