// Package delegatebridge exposes the model delegates of a client over HTTP.
// Every model is served under its table name:
//
//	GET    /plants              list, cursor paged
//	GET    /plants/:id          find unique
//	POST   /plants              create
//	PATCH  /plants/:id          update
//	DELETE /plants/:id          delete
//	POST   /plants/bulk         create many
//	POST   /plants/upsert       upsert
//	POST   /plants/updateMany   update many
//	POST   /plants/deleteMany   delete many
//	POST   /plants/query        find many with JSON arguments
//	POST   /plants/first        find first with JSON arguments
//	POST   /plants/count        count
//	POST   /plants/aggregate    aggregate
//	POST   /plants/groupBy      group by
package delegatebridge

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/jrazmi/growlog/bridge/scaffolding/mid"
	"github.com/jrazmi/growlog/core/client"
	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Config holds configuration for the delegate bridge
type Config struct {
	Log        *logger.Logger
	Client     *client.Client
	Middleware []gin.HandlerFunc
	// Models limits the served models; empty serves all of them.
	Models []string
}

// bridge serves one model.
type bridge struct {
	log      *logger.Logger
	schema   *schema.Schema
	model    *schema.Model
	delegate *repositories.Delegate[repositories.Row]
}

func newBridge(log *logger.Logger, c *client.Client, m *schema.Model) (*bridge, error) {
	d, err := c.Delegate(m.Name)
	if err != nil {
		return nil, err
	}
	return &bridge{
		log:      log,
		schema:   c.Engine().Schema,
		model:    m,
		delegate: d,
	}, nil
}

// AddHttpRoutes registers the routes of every served model on group.
func AddHttpRoutes(group *gin.RouterGroup, cfg Config) error {
	if cfg.Log == nil {
		cfg.Log = logger.NewDiscard()
	}
	handlers := append([]gin.HandlerFunc{mid.Errors(cfg.Log)}, cfg.Middleware...)
	api := group.Group("", handlers...)

	models := cfg.Client.Engine().Schema.Models()
	if len(cfg.Models) > 0 {
		models = models[:0:0]
		for _, name := range cfg.Models {
			m, ok := cfg.Client.Engine().Schema.Model(name)
			if !ok {
				return fmt.Errorf("unknown model %s: %w", name, repositories.ErrValidation)
			}
			models = append(models, m)
		}
	}

	for _, m := range models {
		b, err := newBridge(cfg.Log, cfg.Client, m)
		if err != nil {
			return err
		}
		base := "/" + m.Table

		// Standard CRUD routes
		api.GET(base, b.httpList)
		api.GET(base+"/:id", b.httpGetByID)
		api.POST(base, b.httpCreate)
		api.PATCH(base+"/:id", b.httpUpdate)
		api.DELETE(base+"/:id", b.httpDelete)

		// Bulk and query routes
		api.POST(base+"/bulk", b.httpCreateMany)
		api.POST(base+"/upsert", b.httpUpsert)
		api.POST(base+"/updateMany", b.httpUpdateMany)
		api.POST(base+"/deleteMany", b.httpDeleteMany)
		api.POST(base+"/query", b.httpQuery)
		api.POST(base+"/first", b.httpFirst)
		api.POST(base+"/count", b.httpCount)
		api.POST(base+"/aggregate", b.httpAggregate)
		api.POST(base+"/groupBy", b.httpGroupBy)
	}
	return nil
}
