// Package telemetry sets up logging, metrics and tracing for the service.
package telemetry

import (
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a new OpenTelemetry-aware zap logger writing JSON to stdout.
func NewLogger(level string) (*otelzap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	config.Encoding = "json"
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return otelzap.New(zapLogger, otelzap.WithMinLevel(zapcore.WarnLevel)), nil
}

// ParseLevel maps a LOG_LEVEL value to a zap level. Unknown values mean info.
func ParseLevel(level string) zapcore.Level {
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
