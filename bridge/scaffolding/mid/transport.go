package mid

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/jrazmi/growlog/bridge/scaffolding/fopbridge"
	"github.com/jrazmi/growlog/sdk/logger"
)

// DefaultMaxBodySize bounds request bodies when no limit is configured.
const DefaultMaxBodySize = 1 << 20

// BodyLimit rejects request bodies larger than maxSize bytes.
func BodyLimit(maxSize int64) gin.HandlerFunc {
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if c.Request.ContentLength > maxSize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				fopbridge.NewCodeResponse("body_too_large", "request body too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// Compress gzips responses for clients that accept it. The metrics
// exposition is left alone; promhttp negotiates its own encoding.
func Compress() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"}))
}

// AccessLog writes one record per request.
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(c.Request.Context(), level, "request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("trace_id", GetRequestID(c)),
		)
	}
}

// Recover turns panics into 500 responses and logs them.
func Recover(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.ErrorContext(c.Request.Context(), "panic during request",
			"panic", recovered,
			"route", c.FullPath(),
			"trace_id", GetRequestID(c))
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			fopbridge.NewCodeResponse(CodeInternal, "Internal Server Error"))
	})
}
