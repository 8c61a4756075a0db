package filecache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel is the minimum level a Logger emits.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel parses a level name. Unknown names return LogLevelInfo and
// an error.
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// LogConfig configures NewLogger.
type LogConfig struct {
	Level LogLevel
	// Output defaults to os.Stderr.
	Output io.Writer
	// EnableCallerInfo includes file and line number in records.
	EnableCallerInfo bool
}

// Logger is the structured logger used by the store. A nil *Logger and
// the nop logger both discard everything.
type Logger struct {
	logger *slog.Logger
	fields []any
}

// NewLogger returns a text logger writing to config.Output.
func NewLogger(config LogConfig) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.EnableCallerInfo,
	})
	return &Logger{logger: slog.New(handler)}
}

// FromSlog wraps an existing slog logger. A nil logger yields the nop logger.
func FromSlog(logger *slog.Logger) *Logger {
	if logger == nil {
		return NewNopLogger()
	}
	return &Logger{logger: logger}
}

// NewNopLogger returns a logger that discards all records.
func NewNopLogger() *Logger {
	return &Logger{}
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	if l == nil || l.logger == nil {
		return
	}
	if !l.logger.Enabled(ctx, level) {
		return
	}
	all := make([]any, 0, len(l.fields)+len(args))
	all = append(all, l.fields...)
	all = append(all, args...)
	l.logger.Log(ctx, level, msg, all...)
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelError, msg, args)
}

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	if l == nil || l.logger == nil {
		return l
	}
	fields := make([]any, 0, len(l.fields)+len(args))
	fields = append(fields, l.fields...)
	fields = append(fields, args...)
	return &Logger{logger: l.logger, fields: fields}
}

// WithEntry returns a logger carrying the entry kind and identifier.
func (l *Logger) WithEntry(kind Kind, identifier string) *Logger {
	return l.With("kind", string(kind), "identifier", identifier)
}

// Operation names a store operation in logs and metrics.
type Operation string

const (
	OpGet             Operation = "get"
	OpPut             Operation = "put"
	OpEnsureDirectory Operation = "ensure_directory"
)

// LogCacheOperation logs the outcome of a store operation.
func LogCacheOperation(
	ctx context.Context,
	logger *Logger,
	operation Operation,
	duration time.Duration,
	success bool,
	size int64,
	err error,
) {
	if logger == nil {
		return
	}

	fields := []any{
		"operation", string(operation),
		"duration_ms", duration.Milliseconds(),
		"success", success,
	}
	if size > 0 {
		fields = append(fields, "size", size)
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}

	if success {
		logger.Debug(ctx, "cache operation completed", fields...)
	} else {
		logger.Debug(ctx, "cache operation failed", fields...)
	}
}

// LogCacheHit logs a cache hit.
func LogCacheHit(ctx context.Context, logger *Logger, kind Kind, size int64) {
	if logger == nil {
		return
	}
	logger.Debug(ctx, "cache hit",
		"kind", string(kind),
		"size", size,
		"result", "hit")
}

// LogCacheMiss logs a cache miss and why it happened.
func LogCacheMiss(ctx context.Context, logger *Logger, kind Kind, reason string) {
	if logger == nil {
		return
	}
	logger.Debug(ctx, "cache miss",
		"kind", string(kind),
		"reason", reason,
		"result", "miss")
}

// LogPerformanceMetrics logs a metrics snapshot.
func LogPerformanceMetrics(ctx context.Context, logger *Logger, metrics *MetricsSnapshot) {
	if logger == nil || metrics == nil {
		return
	}
	logger.Info(ctx, "cache performance metrics",
		"hit_rate", fmt.Sprintf("%.2f", metrics.HitRate),
		"hits", metrics.Hits,
		"misses", metrics.Misses,
		"stale", metrics.Stale,
		"errors", metrics.Errors,
		"puts", metrics.Puts,
		"bytes_stored", metrics.BytesStored,
		"bytes_served", metrics.BytesServed,
		"uptime", metrics.Uptime.String(),
	)
}
