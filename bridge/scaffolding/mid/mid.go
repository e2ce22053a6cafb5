// Package mid provides app level middleware support.
package mid

import (
	"github.com/gin-gonic/gin"

	"github.com/jrazmi/growlog/sdk/telemetry"
)

// RequestIDKey stores the request id in the gin context.
const RequestIDKey = "request_id"

// Header names checked for an upstream request id, in priority order.
const (
	HeaderXRequestID     = "X-Request-ID"
	HeaderXCorrelationID = "X-Correlation-ID"
	HeaderRequestID      = "Request-ID"
)

var tel = telemetry.NewTelemetry()

// RequestID reuses an upstream request id or generates one. The id is
// stored in the gin context, the request context and the response headers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		var id string
		for _, h := range []string{HeaderXRequestID, HeaderXCorrelationID, HeaderRequestID} {
			if id = c.GetHeader(h); id != "" {
				break
			}
		}

		ctx := tel.SetTraceID(c.Request.Context(), id)
		id = tel.GetTraceID(ctx)
		c.Request = c.Request.WithContext(ctx)

		c.Set(RequestIDKey, id)
		c.Header(HeaderXRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the request id, or an empty string outside RequestID.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(RequestIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
