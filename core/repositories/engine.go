package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/sdk/cryptids"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Observer is told about every delegate operation.
type Observer func(model, action string, took time.Duration, err error)

// Engine carries what every delegate needs: the schema, the store the
// delegate runs against, and the ambient hooks.
type Engine struct {
	Schema *schema.Schema
	Store  Storer
	// NewID generates primary keys for DefaultID fields.
	NewID func() (string, error)
	// Omit lists fields left out of results per model unless selected.
	Omit    map[string][]string
	Log     *logger.Logger
	Observe Observer
	Now     func() time.Time
}

// NewEngine returns an engine over store with the default schema and ID
// strategy.
func NewEngine(log *logger.Logger, store Storer) *Engine {
	return &Engine{
		Schema: schema.Default,
		Store:  store,
		NewID:  cryptids.GenerateID,
		Log:    log,
	}
}

// WithStore returns a copy of e running against store, typically a
// transaction.
func (e *Engine) WithStore(store Storer) *Engine {
	c := *e
	c.Store = store
	return &c
}

func (e *Engine) model(name string) *schema.Model {
	m, ok := e.Schema.Model(name)
	if !ok {
		panic("repositories: unknown model " + name)
	}
	return m
}

// Time reads the engine clock in UTC.
func (e *Engine) Time() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Engine) observe(ctx context.Context, model, action string, start time.Time, err error) {
	took := time.Since(start)
	if e.Observe != nil {
		e.Observe(model, action, took, err)
	}
	if e.Log == nil {
		return
	}
	switch {
	case err == nil:
		e.Log.DebugContext(ctx, "delegate", "model", model, "action", action, "took", took)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		e.Log.DebugContext(ctx, "delegate", "model", model, "action", action, "took", took, "error", err)
	default:
		e.Log.ErrorContext(ctx, "delegate", "model", model, "action", action, "took", took, "error", err)
	}
}
