package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// LoggerKey is the gin context key for the request-scoped logger.
const LoggerKey = "logger"

// RequestLogger prefers the OpenTelemetry trace ID over the generated one,
// stores a logger carrying both IDs on the context and logs every completed
// request. It must run after Correlation and the otelgin middleware.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		spanCtx := trace.SpanContextFromContext(c.Request.Context())
		if spanCtx.HasTraceID() {
			traceID := spanCtx.TraceID().String()
			c.Set(TraceIDKey, traceID)
			c.Header(HeaderTraceID, traceID)
		}

		logger := base.With(
			slog.String("correlation_id", c.GetString(CorrelationIDKey)),
			slog.String("trace_id", c.GetString(TraceIDKey)),
		)
		c.Set(LoggerKey, logger)

		start := time.Now()
		c.Next()

		logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}

// Logger returns the request-scoped logger, or slog.Default outside a request
// that passed through RequestLogger.
func Logger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(LoggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}
