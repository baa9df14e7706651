// Package logging builds the service's zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger, or a human-readable console
// logger when development is set. Timestamps are ISO8601 either way so
// log lines correlate with job timestamps.
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// MustNew is New for call sites without an error path.
func MustNew(development bool) *zap.Logger {
	logger, err := New(development)
	if err != nil {
		panic(err)
	}
	return logger
}
