package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false, ServiceName: "agrolink"}, zap.New(core))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("agrolink.test"))
	assert.NoError(t, tp.Shutdown(context.Background()))
	assert.Equal(t, 1, recorded.FilterMessage("Tracing disabled").Len())
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	original := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(original) })

	tp, err := NewTracerProvider(context.Background(), Config{
		Enabled:           true,
		CollectorEndpoint: "127.0.0.1:4317",
		SamplingRatio:     1,
		ServiceName:       "agrolink",
		ServiceVersion:    "1.2.3",
		Insecure:          true,
	}, nil)
	require.NoError(t, err)
	require.True(t, tp.IsEnabled())
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	// spans are left open so shutdown has nothing to export
	_, span := tp.Tracer("agrolink.test").Start(context.Background(), "probe")
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.SpanContext().IsSampled())

	_, viaGlobal := otel.Tracer("agrolink.test").Start(context.Background(), "global")
	assert.True(t, viaGlobal.IsRecording())
}

func TestServiceResource(t *testing.T) {
	res, err := serviceResource("agrolink", "")
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "agrolink", attrs[string(semconv.ServiceNameKey)])
	assert.Equal(t, "dev", attrs[string(semconv.ServiceVersionKey)])
}

func TestSampler(t *testing.T) {
	root := sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       trace.TraceID{0x01},
		Name:          "root",
	}

	tests := []struct {
		name  string
		ratio float64
		want  sdktrace.SamplingDecision
	}{
		{"always", 1, sdktrace.RecordAndSample},
		{"above one", 5, sdktrace.RecordAndSample},
		{"never", 0, sdktrace.Drop},
		{"negative", -1, sdktrace.Drop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sampler(tt.ratio).ShouldSample(root).Decision)
		})
	}
}

func TestSampler_FollowsSampledParent(t *testing.T) {
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x02},
		SpanID:     trace.SpanID{0x03},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	params := sdktrace.SamplingParameters{
		ParentContext: trace.ContextWithRemoteSpanContext(context.Background(), parent),
		TraceID:       parent.TraceID(),
		Name:          "child",
	}
	assert.Equal(t, sdktrace.RecordAndSample, sampler(0).ShouldSample(params).Decision)
}
