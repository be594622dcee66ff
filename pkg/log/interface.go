// Package log provides the structured logging interface used across xaibench.
//
// The interface is slog-compatible so call sites read the same whatever the
// backend; the default backend is zerolog (see zerolog.go). Attribute keys for
// ML operations live in attributes.go.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("workbench").With(
//	    log.DatasetKey, "CENSUS",
//	    log.TargetKey, "income",
//	)
//	logger.Info("Model trained",
//	    log.AlgorithmKey, "RANDOM_FOREST",
//	    log.AccuracyKey, 0.84,
//	)
package log

import (
	"context"
)

// Logger is a structured logger with key-value fields.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs a situation that does not stop execution.
	Warn(msg string, fields ...any)

	// Error logs an error condition. If the first field is an error value it
	// is attached as the record's error, including its stack trace when the
	// error carries one.
	//
	//   logger.Error("Model training failed", err,
	//       log.OperationKey, log.OperationFit,
	//   )
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level with slog-compatible values.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts "debug", "info", "warn" or "error" to a Level.
func ParseLevel(level string) (Level, bool) {
	switch level {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// LoggerProvider creates loggers. Tests swap in TestLoggerProvider.
type LoggerProvider interface {
	// GetLogger returns the default logger.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for loggers created by this provider.
	SetLevel(level Level)
}
