package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewDefaultsEncoding(t *testing.T) {
	l, err := New(Config{Level: "debug", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.NotNil(t, l)
	assert.True(t, l.Core().Enabled(-1)) // debug
}

func TestInitAndGet(t *testing.T) {
	assert.NotNil(t, Get())

	require.NoError(t, Init(Config{Level: "warn", OutputPaths: []string{"stderr"}}))
	t.Cleanup(func() { global.Store(nil) })

	assert.False(t, Get().Core().Enabled(0)) // info
	assert.True(t, Get().Core().Enabled(1))  // warn
	assert.NoError(t, Sync())

	require.Error(t, Init(Config{Level: "loud"}))
	assert.True(t, Get().Core().Enabled(1), "failed Init keeps the previous logger")
}

func TestFields(t *testing.T) {
	assert.Empty(t, Fields(context.Background()))

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithFingerprint(ctx, "abc123")
	fields := Fields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, "request_id", fields[0].Key)
	assert.Equal(t, "req-1", fields[0].String)
	assert.Equal(t, "fingerprint", fields[1].Key)
	assert.NotNil(t, WithContext(ctx))
}

func TestFieldsTraceID(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:  trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	fields := Fields(ctx)
	require.Len(t, fields, 1)
	assert.Equal(t, "trace_id", fields[0].Key)
	assert.Equal(t, sc.TraceID().String(), fields[0].String)
}
