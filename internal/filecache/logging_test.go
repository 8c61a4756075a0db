package filecache

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{input: "debug", want: LogLevelDebug},
		{input: "INFO", want: LogLevelInfo},
		{input: "", want: LogLevelInfo},
		{input: "warning", want: LogLevelWarn},
		{input: "warn", want: LogLevelWarn},
		{input: "error", want: LogLevelError},
		{input: "verbose", want: LogLevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLogLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogger_LevelGating(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: LogLevelWarn, Output: &buf})
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: LogLevelDebug, Output: &buf})

	logger.WithEntry(KindAsset, "main.js").With("attempt", 2).Info(context.Background(), "stored")

	out := buf.String()
	assert.Contains(t, out, "kind=asset")
	assert.Contains(t, out, "identifier=main.js")
	assert.Contains(t, out, "attempt=2")
}

func TestLogger_NopAndNil(t *testing.T) {
	ctx := context.Background()
	var nilLogger *Logger

	assert.NotPanics(t, func() {
		NewNopLogger().With("k", "v").Error(ctx, "dropped")
		nilLogger.Warn(ctx, "dropped")
		LogCacheHit(ctx, nil, KindModule, 1)
		LogPerformanceMetrics(ctx, NewNopLogger(), nil)
	})
	assert.Nil(t, nilLogger.With("k", "v"))
	assert.NotNil(t, FromSlog(nil))
}

func TestLogCacheOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: LogLevelDebug, Output: &buf})

	LogCacheOperation(context.Background(), logger, OpPut, 3*time.Millisecond, false, 42, errors.New("disk full"))

	out := buf.String()
	assert.Contains(t, out, "cache operation failed")
	assert.Contains(t, out, "operation=put")
	assert.Contains(t, out, "size=42")
	assert.Contains(t, out, `error="disk full"`)
}

func TestLogPerformanceMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: LogLevelInfo, Output: &buf})

	m := NewMetrics()
	m.RecordHit(KindModule, 5)
	snapshot := m.Snapshot()
	LogPerformanceMetrics(context.Background(), logger, &snapshot)

	assert.Contains(t, buf.String(), "hit_rate=1.00")
}
