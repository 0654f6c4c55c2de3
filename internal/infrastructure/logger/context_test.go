package logger

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

func fieldMap(fields []zap.Field) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Key] = f.String
	}
	return out
}

func spanContext(t *testing.T) trace.SpanContext {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()), "missing logger falls back to nop")

	ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
	assert.NotNil(t, FromContext(ctx))

	log := zap.NewExample()
	assert.Same(t, log, FromContext(WithContext(context.Background(), log)))
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetUserID(ctx))
	assert.Empty(t, GetActorRole(ctx))

	ctx = WithRequestID(ctx, "req-42")
	ctx = WithActor(ctx, "6f1c2d4e-0000-4000-8000-000000000001", "SUPPLIER")

	assert.Equal(t, "req-42", GetRequestID(ctx))
	assert.Equal(t, "6f1c2d4e-0000-4000-8000-000000000001", GetUserID(ctx))
	assert.Equal(t, "SUPPLIER", GetActorRole(ctx))
}

func TestCorrelationFields(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		assert.Empty(t, CorrelationFields(context.Background()))
	})

	t.Run("request and actor", func(t *testing.T) {
		ctx := WithActor(WithRequestID(context.Background(), "req-1"), "user-1", "BUYER")
		got := fieldMap(CorrelationFields(ctx))
		assert.Equal(t, map[string]string{
			"request_id": "req-1",
			"user_id":    "user-1",
			"actor_role": "BUYER",
		}, got)
	})

	t.Run("trace", func(t *testing.T) {
		ctx := trace.ContextWithSpanContext(context.Background(), spanContext(t))
		got := fieldMap(CorrelationFields(ctx))
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", got["trace_id"])
		assert.Equal(t, "00f067aa0ba902b7", got["span_id"])
	})

	t.Run("invalid span context is ignored", func(t *testing.T) {
		ctx := trace.ContextWithSpanContext(context.Background(), trace.SpanContext{})
		assert.Empty(t, CorrelationFields(ctx))
	})
}

func TestEnrich(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := WithActor(WithRequestID(context.Background(), "req-7"), "user-7", "SUPPLIER")
	Enrich(ctx, base).Info("transport scheduled")

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Equal(t, "user-7", fields["user_id"])
	assert.Equal(t, "SUPPLIER", fields["actor_role"])
}

func TestEnrich_FallsBackToContextLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	Enrich(ctx, nil).Info("from context")
	assert.Equal(t, 1, recorded.Len())

	// nothing to add returns the base logger untouched
	base := zap.New(core)
	assert.Same(t, base, Enrich(context.Background(), base))
}
