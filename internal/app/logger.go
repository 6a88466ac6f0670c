package app

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap logger: JSON output when LOG_FORMAT=json, console output
// otherwise.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	level := "debug"
	if cfg != nil {
		if cfg.LogFormat == "json" {
			zcfg = zap.NewProductionConfig()
		}
		if cfg.LogLevel != "" {
			level = cfg.LogLevel
		}
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
