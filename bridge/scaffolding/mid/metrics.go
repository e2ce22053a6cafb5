package mid

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jrazmi/growlog/infrastructure/metrics"
)

// Metrics records request counts and latency per route. Unmatched requests
// share one label to bound cardinality.
func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		collector.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
