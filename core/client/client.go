// Package client is the entry point of the data-access layer: one delegate
// per model over a lazily connected backend, interactive and batch
// transactions, raw queries and log events.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/repositories/accountsrepo"
	"github.com/jrazmi/growlog/core/repositories/logsrepo"
	"github.com/jrazmi/growlog/core/repositories/plantsrepo"
	"github.com/jrazmi/growlog/core/repositories/sessionsrepo"
	"github.com/jrazmi/growlog/core/repositories/strainsrepo"
	"github.com/jrazmi/growlog/core/repositories/tagsrepo"
	"github.com/jrazmi/growlog/core/repositories/usersrepo"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/sdk/logger"
)

// State is the connection state of a client.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
)

// Delegates holds one repository per model.
type Delegates struct {
	Users    *usersrepo.Repository
	Accounts *accountsrepo.Repository
	Sessions *sessionsrepo.Repository
	Plants   *plantsrepo.Repository
	Strains  *strainsrepo.Repository
	Logs     *logsrepo.Repository
	Tags     *tagsrepo.Repository
}

func newDelegates(log *logger.Logger, e *repositories.Engine) Delegates {
	return Delegates{
		Users:    usersrepo.NewRepository(log, e),
		Accounts: accountsrepo.NewRepository(log, e),
		Sessions: sessionsrepo.NewRepository(log, e),
		Plants:   plantsrepo.NewRepository(log, e),
		Strains:  strainsrepo.NewRepository(log, e),
		Logs:     logsrepo.NewRepository(log, e),
		Tags:     tagsrepo.NewRepository(log, e),
	}
}

// connection is shared by a client and the transaction views derived from it.
type connection struct {
	cfg    Config
	log    *logger.Logger
	events *events
	hook   repositories.QueryHook

	mu      sync.Mutex
	backend *backend
}

func (c *connection) get(ctx context.Context) (*backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != nil {
		return c.backend, nil
	}
	b, err := openBackend(ctx, c.cfg, c.log, c.hook)
	if err != nil {
		c.events.emit(Event{Level: LogError, Message: err.Error()})
		return nil, err
	}
	c.backend = b
	c.events.emit(Event{Level: LogInfo, Message: "connected", Target: b.name})
	return b, nil
}

func (c *connection) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend == nil {
		return nil
	}
	b := c.backend
	c.backend = nil
	err := b.db.Close()
	c.events.emit(Event{Level: LogInfo, Message: "disconnected", Target: b.name})
	return err
}

func (c *connection) state() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend == nil {
		return StateDisconnected
	}
	return StateConnected
}

// Client exposes the delegates. The zero value is not usable; call New.
type Client struct {
	Delegates

	conn        *connection
	engine      *repositories.Engine
	log         *logger.Logger
	format      ErrorFormat
	maxWait     time.Duration
	timeout     time.Duration
	isolation   repositories.IsolationLevel
	transaction repositories.Tx
}

// New validates cfg and returns a disconnected client. The backend is
// opened by Connect or by the first operation.
func New(cfg Config, opts ...Option) (*Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewDiscard()
	}

	if _, err := BackendOf(cfg.DatasourceURL); err != nil {
		return nil, &repositories.InitializationError{Code: "P1013", Err: err}
	}
	defs, err := parseLogDefinitions(cfg.Log)
	if err != nil {
		return nil, &repositories.InitializationError{Err: err}
	}
	isolation, err := parseIsolation(cfg.IsolationLevel)
	if err != nil {
		return nil, &repositories.InitializationError{Err: err}
	}
	format := ErrorFormat(cfg.ErrorFormat)
	switch format {
	case "":
		format = ErrorFormatColorless
	case ErrorFormatMinimal, ErrorFormatColorless, ErrorFormatPretty:
	default:
		return nil, &repositories.InitializationError{Err: fmt.Errorf("unknown error format %q", cfg.ErrorFormat)}
	}
	newID := o.newID
	if newID == nil {
		if newID, err = idGenerator(cfg.IDStrategy); err != nil {
			return nil, &repositories.InitializationError{Err: err}
		}
	}
	for model, fields := range o.omit {
		m, ok := schema.Default.Model(model)
		if !ok {
			return nil, &repositories.InitializationError{Err: fmt.Errorf("omit: unknown model %s", model)}
		}
		for _, f := range fields {
			if _, ok := m.Field(f); !ok {
				return nil, &repositories.InitializationError{Err: fmt.Errorf("omit: unknown field %s.%s", model, f)}
			}
		}
	}
	if cfg.TransactionMaxWait <= 0 {
		cfg.TransactionMaxWait = 2 * time.Second
	}
	if cfg.TransactionTimeout <= 0 {
		cfg.TransactionTimeout = 5 * time.Second
	}

	ev := newEvents(o.log, defs)
	hooks := append([]repositories.QueryHook{ev.query}, o.hooks...)
	conn := &connection{
		cfg:    cfg,
		log:    o.log,
		events: ev,
		hook: func(e repositories.QueryEvent) {
			for _, h := range hooks {
				h(e)
			}
		},
	}

	observers := o.observers
	engine := repositories.NewEngine(o.log, lazyStore{conn: conn})
	engine.NewID = newID
	engine.Omit = o.omit
	engine.Now = o.now
	engine.Observe = func(model, action string, took time.Duration, err error) {
		if err != nil && !errors.Is(err, repositories.ErrValidation) {
			ev.emit(Event{Level: LogError, Message: err.Error(), Target: model + "." + action, Duration: took})
		}
		for _, obs := range observers {
			obs(model, action, took, err)
		}
	}

	return &Client{
		Delegates: newDelegates(o.log, engine),
		conn:      conn,
		engine:    engine,
		log:       o.log,
		format:    format,
		maxWait:   cfg.TransactionMaxWait,
		timeout:   cfg.TransactionTimeout,
		isolation: isolation,
	}, nil
}

// NewFromEnv loads the configuration with LoadConfig and calls New.
func NewFromEnv(prefix, path string, opts ...Option) (*Client, error) {
	cfg, err := LoadConfig(prefix, path)
	if err != nil {
		return nil, &repositories.InitializationError{Err: err}
	}
	return New(cfg, opts...)
}

// Connect opens the backend. It is a no-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.conn.get(ctx)
	return err
}

// Disconnect closes the backend. A later operation connects again.
func (c *Client) Disconnect(ctx context.Context) error {
	if c.transaction != nil {
		return fmt.Errorf("disconnect inside a transaction: %w", repositories.ErrOperationNotSupported)
	}
	return c.conn.close()
}

// State reports whether the backend is open.
func (c *Client) State() State {
	return c.conn.state()
}

// Backend names the backend the datasource URL selects.
func (c *Client) Backend() string {
	name, _ := BackendOf(c.conn.cfg.DatasourceURL)
	return name
}

// Ping checks the backend, connecting first if needed.
func (c *Client) Ping(ctx context.Context) error {
	b, err := c.conn.get(ctx)
	if err != nil {
		return err
	}
	return b.db.Ping(ctx)
}

// Engine returns the engine the delegates run on, for callers building
// delegates by model name.
func (c *Client) Engine() *repositories.Engine {
	return c.engine
}

// Delegate returns an untyped delegate of the named model.
func (c *Client) Delegate(model string) (*repositories.Delegate[repositories.Row], error) {
	if _, ok := c.engine.Schema.Model(model); !ok {
		return nil, fmt.Errorf("unknown model %s: %w", model, repositories.ErrValidation)
	}
	return repositories.NewDelegate[repositories.Row](c.engine, model), nil
}

// On registers handler for a level whose definition emits events.
func (c *Client) On(level LogLevel, handler func(Event)) {
	c.conn.events.on(level, handler)
}

// FormatError renders err in the configured error format.
func (c *Client) FormatError(err error) string {
	return FormatError(c.format, err)
}

// store returns what operations run against: the open transaction, or the
// connected backend.
func (c *Client) store(ctx context.Context) (repositories.Storer, *backend, error) {
	b, err := c.conn.get(ctx)
	if err != nil {
		return nil, nil, err
	}
	if c.transaction != nil {
		return c.transaction, b, nil
	}
	return b.db, b, nil
}
