package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attributes set on request spans
const (
	AttrRequestID = attribute.Key("request_id")
	AttrUserID    = attribute.Key("user_id")
	AttrActorRole = attribute.Key("actor_role")
	AttrErrorCode = attribute.Key("error.code")
)

// ErrorCodeKey is where handlers leave the API error code of a failed request
const ErrorCodeKey = "error_code"

// Tracing opens a server span per request through otelgin. Requests whose
// path starts with one of skipPrefixes are not traced.
func Tracing(serviceName string, skipPrefixes ...string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			for _, p := range skipPrefixes {
				if strings.HasPrefix(r.URL.Path, p) {
					return false
				}
			}
			return true
		}),
	)
}

// SpanEnricher adds the request id and the resolved actor to the span opened
// by Tracing. It must run after ActorIdentity. 4xx business outcomes keep the
// span status unset; only 5xx responses mark it as failed.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := RequestIDFrom(c); id != "" {
			span.SetAttributes(AttrRequestID.String(id))
		}
		if id := GetActorUserID(c); id != "" {
			span.SetAttributes(AttrUserID.String(id), AttrActorRole.String(GetActorRole(c)))
		}

		c.Next()

		if code := c.GetString(ErrorCodeKey); code != "" {
			span.SetAttributes(AttrErrorCode.String(code))
		}
		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
