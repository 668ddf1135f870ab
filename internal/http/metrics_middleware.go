package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/GiftAdmin/internal/metrics"
)

// Metrics records request count and latency per route template.
// Unmatched paths share one label so scanners cannot inflate cardinality.
func Metrics() gin.HandlerFunc {
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
