package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupTestLogger(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })
	return logs
}

func fieldMap(entry observer.LoggedEntry) map[string]interface{} {
	return entry.ContextMap()
}

func TestGetTraceID(t *testing.T) {
	ctxWithID := context.WithValue(context.Background(), traceIDKey, "id123")
	assert.Equal(t, "id123", GetTraceID(ctxWithID))

	assert.Empty(t, GetTraceID(context.Background()))

	ctxWrongType := context.WithValue(context.Background(), traceIDKey, 42)
	assert.Empty(t, GetTraceID(ctxWrongType))
}

func TestCtxLogging_InjectsTraceID(t *testing.T) {
	logs := setupTestLogger(t)

	ctx := WithTraceID(context.Background(), "trace-edge")
	CtxInfo(ctx, "info with trace ID")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "info with trace ID", entry.Message)
	assert.Equal(t, "trace-edge", fieldMap(entry)["trace_id"])
}

func TestCtxLogging_NoTraceID(t *testing.T) {
	logs := setupTestLogger(t)

	CtxWarn(context.Background(), "warn without trace ID")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	_, ok := fieldMap(entry)["trace_id"]
	assert.False(t, ok)
}

func TestCtxError_IncludesErrorAndTraceID(t *testing.T) {
	logs := setupTestLogger(t)

	ctx := WithTraceID(context.Background(), "trace-error")
	CtxError(ctx, "error occurred", errors.New("fatal error"))

	require.Equal(t, 1, logs.Len())
	fields := fieldMap(logs.All()[0])
	assert.Equal(t, "fatal error", fields["error"])
	assert.Equal(t, "trace-error", fields["trace_id"])
}

func TestNonContextLogging(t *testing.T) {
	logs := setupTestLogger(t)

	Info("info", zap.String("k", "v"))
	Debug("debug")
	Warn("warn")
	Error("error message", errors.New("fail"))

	require.Equal(t, 4, logs.Len())
	assert.Equal(t, "v", fieldMap(logs.All()[0])["k"])
	assert.Equal(t, "fail", fieldMap(logs.All()[3])["error"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zap.DebugLevel,
		"DEBUG":   zap.DebugLevel,
		"warn":    zap.WarnLevel,
		"error":   zap.ErrorLevel,
		"info":    zap.InfoLevel,
		"unknown": zap.InfoLevel,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, parseLevel(in))
		})
	}
}
