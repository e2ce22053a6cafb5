// Package api assembles the HTTP surface of the growlog service: global
// middleware, health and metrics endpoints, and the delegate routes.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jrazmi/growlog/bridge/delegatebridge"
	"github.com/jrazmi/growlog/bridge/scaffolding/fopbridge"
	"github.com/jrazmi/growlog/bridge/scaffolding/mid"
	"github.com/jrazmi/growlog/core/client"
	"github.com/jrazmi/growlog/infrastructure/metrics"
	"github.com/jrazmi/growlog/infrastructure/web"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Config is what the handler needs from main.
type Config struct {
	Build   string
	Log     *logger.Logger
	Client  *client.Client
	Metrics *metrics.Collector
	Web     web.ServerConfig
	CORS    mid.CORSConfig
	Models  []string
}

// Health is the body of GET /healthz.
type Health struct {
	Status  string `json:"status"`
	Build   string `json:"build"`
	Backend string `json:"backend"`
	State   string `json:"state"`
}

// Handler builds the router.
func Handler(cfg Config) (http.Handler, error) {
	r := web.NewRouter(cfg.Web.EnableDebug)

	r.Use(
		mid.Recover(cfg.Log),
		mid.RequestID(),
		mid.AccessLog(cfg.Log),
		mid.Metrics(cfg.Metrics),
		mid.CORSWithConfig(cfg.CORS),
		mid.Compress(),
		mid.BodyLimit(cfg.Web.MaxBodySize),
	)

	r.GET("/healthz", health(cfg))
	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	err := delegatebridge.AddHttpRoutes(r.Group(cfg.Web.APIRoute), delegatebridge.Config{
		Log:    cfg.Log,
		Client: cfg.Client,
		Models: cfg.Models,
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func health(cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := cfg.Client.Ping(c.Request.Context()); err != nil {
			cfg.Log.WarnContext(c.Request.Context(), "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, fopbridge.NewCodeResponse(mid.CodeUnavailable, err.Error()))
			return
		}
		c.JSON(http.StatusOK, Health{
			Status:  "ok",
			Build:   cfg.Build,
			Backend: cfg.Client.Backend(),
			State:   string(cfg.Client.State()),
		})
	}
}
