package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

const errorCodeKey = "sacco.error_code"

// SetErrorCode records the domain error code a handler answered with.
func SetErrorCode(c *gin.Context, code string) {
	c.Set(errorCodeKey, code)
}

// NewMetricMiddleware records latency and volume per route, and counts
// requests refused with a domain error code.
func NewMetricMiddleware(meter metric.Meter) gin.HandlerFunc {
	durationHistogram, _ := meter.Int64Histogram(
		"http.server.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("The latency of HTTP requests."),
	)
	requestCounter, _ := meter.Int64Counter(
		"http.server.requests_total",
		metric.WithDescription("The total number of HTTP requests."),
	)
	domainErrorCounter, _ := meter.Int64Counter(
		"sacco.domain_errors_total",
		metric.WithDescription("Requests refused with a domain error code."),
	)

	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		ctx := c.Request.Context()
		route := semconv.HTTPRouteKey.String(c.FullPath())
		attributes := metric.WithAttributes(
			route,
			semconv.HTTPMethodKey.String(c.Request.Method),
			semconv.HTTPStatusCodeKey.Int(c.Writer.Status()),
		)

		durationHistogram.Record(ctx, time.Since(startTime).Milliseconds(), attributes)
		requestCounter.Add(ctx, 1, attributes)

		if code := c.GetString(errorCodeKey); code != "" {
			domainErrorCounter.Add(ctx, 1, metric.WithAttributes(route, attribute.String("error.code", code)))
		}
	}
}
