package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brunogervazio/ezcoins-web/internal/metrics"
)

// Prometheus records request count and latency per matched route.
func Prometheus() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
