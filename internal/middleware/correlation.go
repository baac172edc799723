package middleware

import (
	"encoding/hex"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderCorrelationID carries the correlation ID between the front-end and
	// this client.
	HeaderCorrelationID = "X-Correlation-Id"

	// HeaderTraceID carries the trace ID of the request.
	HeaderTraceID = "X-Trace-Id"

	// CorrelationIDKey is the gin context key for the correlation ID.
	CorrelationIDKey = "correlation_id"

	// TraceIDKey is the gin context key for the trace ID.
	TraceIDKey = "trace_id"
)

// Correlation reuses incoming correlation and trace IDs or generates new ones,
// and echoes both on the response.
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		traceID := c.GetHeader(HeaderTraceID)
		if traceID == "" {
			traceID = newTraceID()
		}

		c.Set(CorrelationIDKey, correlationID)
		c.Set(TraceIDKey, traceID)
		c.Header(HeaderCorrelationID, correlationID)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}

// newTraceID returns 32 lowercase hex characters.
func newTraceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
