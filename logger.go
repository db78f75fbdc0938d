package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the process logger. Verbose mode drops the level to
// debug and switches to the console encoder for local reading.
func newLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.verbose {
		zc := zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return zc.Build()
	}
	return zap.NewProduction()
}
