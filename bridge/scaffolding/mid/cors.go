package mid

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig holds CORS configuration options
type CORSConfig struct {
	Origins     []string      `yaml:"origins" env:"CORS_ORIGINS" default:"*" separator:","`
	Methods     []string      `yaml:"methods" env:"CORS_METHODS" default:"GET,POST,PATCH,DELETE,OPTIONS" separator:","`
	Headers     []string      `yaml:"headers" env:"CORS_HEADERS" default:"Accept,Content-Type,Authorization,X-Request-ID" separator:","`
	Credentials bool          `yaml:"credentials" env:"CORS_CREDENTIALS" default:"false"`
	MaxAge      time.Duration `yaml:"max_age" env:"CORS_MAX_AGE" default:"24h"`
}

// DefaultCORSConfig returns a default CORS configuration
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		Origins: []string{"*"},
		Methods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		Headers: []string{"Accept", "Content-Type", "Authorization", HeaderXRequestID},
		MaxAge:  24 * time.Hour,
	}
}

// CORS creates CORS middleware with the given origins
func CORS(origins ...string) gin.HandlerFunc {
	config := DefaultCORSConfig()
	if len(origins) > 0 {
		config.Origins = origins
	}
	return CORSWithConfig(config)
}

// CORSWithConfig creates CORS middleware with full configuration. A
// wildcard origin never allows credentials.
func CORSWithConfig(config CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:     config.Methods,
		AllowHeaders:     config.Headers,
		ExposeHeaders:    []string{"Content-Length", HeaderXRequestID},
		AllowCredentials: config.Credentials,
		MaxAge:           config.MaxAge,
	}
	for _, o := range config.Origins {
		if o == "*" {
			c.AllowAllOrigins = true
			c.AllowCredentials = false
			break
		}
	}
	if !c.AllowAllOrigins {
		c.AllowOrigins = config.Origins
	}
	return cors.New(c)
}
