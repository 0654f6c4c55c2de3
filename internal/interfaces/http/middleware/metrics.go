package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/agrolink/backend/internal/infrastructure/telemetry"
)

var (
	attrStatusClass = attribute.Key("http.status_class")
	attrActorRole   = attribute.Key("actor.role")

	sizeBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576}
)

type httpInstruments struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	reqSize  *telemetry.Histogram
	respSize *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var (
		in  httpInstruments
		err error
	)
	if in.requests, err = telemetry.NewCounter(meter, "http_server_request_total", "Requests served", "{request}"); err != nil {
		return nil, err
	}

	histograms := []struct {
		target **telemetry.Histogram
		opts   telemetry.HistogramOpts
	}{
		{&in.duration, telemetry.HistogramOpts{Name: "http_server_request_duration_seconds", Description: "Request latency", Unit: "s", Boundaries: telemetry.HTTPDurationBuckets}},
		{&in.reqSize, telemetry.HistogramOpts{Name: "http_server_request_size_bytes", Description: "Declared request body size", Unit: "By", Boundaries: sizeBuckets}},
		{&in.respSize, telemetry.HistogramOpts{Name: "http_server_response_size_bytes", Description: "Response body size", Unit: "By", Boundaries: sizeBuckets}},
	}
	for _, h := range histograms {
		if *h.target, err = telemetry.NewHistogram(meter, h.opts); err != nil {
			return nil, err
		}
	}

	in.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Requests being served"), metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// HTTPMetrics records request metrics on mp. It passes requests through
// untouched when mp is nil or disabled.
func HTTPMetrics(mp *telemetry.MeterProvider, logger *zap.Logger) gin.HandlerFunc {
	if !mp.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(mp.Meter("agrolink.http"), logger)
}

// HTTPMetricsWithMeter records request metrics on meter. Routes are labelled
// by their pattern, unmatched paths as "unmatched".
func HTTPMetricsWithMeter(meter metric.Meter, logger *zap.Logger) gin.HandlerFunc {
	in, err := newHTTPInstruments(meter)
	if err != nil {
		if logger != nil {
			logger.Error("HTTP metrics unavailable", zap.Error(err))
		}
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		in.inFlight.Add(ctx, 1)
		defer in.inFlight.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		base := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}

		counted := append(base[:2:2], telemetry.AttrHTTPStatusCode.Int(status))
		if role := GetActorRole(c); role != "" {
			counted = append(counted, attrActorRole.String(role))
		}
		in.requests.Inc(ctx, counted...)
		in.duration.RecordDuration(ctx, time.Since(start), append(base[:2:2], attrStatusClass.String(StatusClass(status)))...)

		if n := c.Request.ContentLength; n > 0 {
			in.reqSize.Record(ctx, float64(n), base...)
		}
		if n := c.Writer.Size(); n > 0 {
			in.respSize.Record(ctx, float64(n), base...)
		}
	}
}

// StatusClass buckets a status code as 2xx, 3xx, 4xx or 5xx
func StatusClass(status int) string {
	switch status / 100 {
	case 2:
		return "2xx"
	case 3:
		return "3xx"
	case 4:
		return "4xx"
	case 5:
		return "5xx"
	}
	return "other"
}

func passThrough(c *gin.Context) { c.Next() }
