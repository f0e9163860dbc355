package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func useObserver(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	orig, origService := logger, serviceName
	SetLogger(zap.New(core), "test-service")
	t.Cleanup(func() { SetLogger(orig, origService) })
	return logs
}

func TestInfoAddsServiceField(t *testing.T) {
	logs := useObserver(t)

	Info("hello", zap.String("k", "v"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "test-service", fields["service"])
	assert.Equal(t, "v", fields["k"])
}

func TestFromContextIncludesTrace(t *testing.T) {
	logs := useObserver(t)

	traceID, _ := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	spanID, _ := trace.SpanIDFromHex("0123456789abcdef")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	FromContext(ctx).Warn("traced")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
}

func TestWithTraceContextWithoutSpan(t *testing.T) {
	logs := useObserver(t)

	FromContext(context.Background()).Info("untraced")

	fields := logs.All()[0].ContextMap()
	_, hasTrace := fields["trace_id"]
	assert.False(t, hasTrace)
	assert.Equal(t, "test-service", fields["service"])
}

func TestShutdownWithoutProvider(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background()))
}
