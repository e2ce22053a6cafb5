// Package memorydb is an in-process store holding every table in memory.
// Writes are serialized and each statement applies to a copy of the state
// that replaces it on success, so a failed statement changes nothing.
// Transactions hold the write lock from Begin until they finish.
package memorydb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Target names the backend in query events.
const Target = "memory"

type options struct {
	schema *schema.Schema
	log    *logger.Logger
	hook   repositories.QueryHook
}

// Option configures a DB.
type Option func(*options)

// WithSchema sets the models the store holds.
func WithSchema(s *schema.Schema) Option {
	return func(o *options) {
		o.schema = s
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithQueryHook receives an event per statement.
func WithQueryHook(hook repositories.QueryHook) Option {
	return func(o *options) {
		o.hook = hook
	}
}

// DB is an in-memory repositories.Database.
type DB struct {
	schema     *schema.Schema
	log        *logger.Logger
	hook       repositories.QueryHook
	linkModels map[string]map[string]*schema.Model

	// sem is held by writers and open transactions.
	sem    chan struct{}
	mu     sync.RWMutex
	state  *state
	closed bool
}

// New returns an empty store.
func New(opts ...Option) *DB {
	o := options{schema: schema.Default}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewDiscard()
	}
	return &DB{
		schema:     o.schema,
		log:        o.log,
		hook:       o.hook,
		linkModels: linkModelsOf(o.schema),
		sem:        make(chan struct{}, 1),
		state:      newState(),
	}
}

func (db *DB) acquire(ctx context.Context) error {
	select {
	case db.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (db *DB) release() {
	<-db.sem
}

func (db *DB) executor(st *state) *executor {
	return &executor{schema: db.schema, st: st, linkModels: db.linkModels}
}

func (db *DB) emit(query string, start time.Time, params ...any) {
	if db.hook == nil {
		return
	}
	db.hook(repositories.QueryEvent{
		Query:    query,
		Params:   params,
		Duration: time.Since(start),
		Target:   Target,
	})
}

// read runs fn against the committed state.
func (db *DB) read(ctx context.Context, query string, fn func(ex *executor) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer db.emit(query, time.Now())
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return repositories.ErrDisconnected
	}
	return fn(db.executor(db.state))
}

// write runs fn against a copy of the committed state and publishes the
// copy when fn succeeds.
func (db *DB) write(ctx context.Context, query string, fn func(ex *executor) error) error {
	if err := db.acquire(ctx); err != nil {
		return err
	}
	defer db.release()
	defer db.emit(query, time.Now())

	db.mu.RLock()
	closed, next := db.closed, db.state.clone()
	db.mu.RUnlock()
	if closed {
		return repositories.ErrDisconnected
	}
	if err := fn(db.executor(next)); err != nil {
		return err
	}
	db.mu.Lock()
	db.state = next
	db.mu.Unlock()
	return nil
}

func (db *DB) Find(ctx context.Context, m *schema.Model, q repositories.Query) ([]repositories.Row, error) {
	var rows []repositories.Row
	err := db.read(ctx, "find "+m.Name, func(ex *executor) error {
		rows = ex.find(m, q)
		return nil
	})
	return rows, err
}

func (db *DB) Insert(ctx context.Context, m *schema.Model, rows []repositories.Row, skipDuplicates bool) ([]repositories.Row, error) {
	var out []repositories.Row
	err := db.write(ctx, "insert "+m.Name, func(ex *executor) (err error) {
		out, err = ex.insert(m, rows, skipDuplicates)
		return err
	})
	return out, err
}

func (db *DB) Update(ctx context.Context, m *schema.Model, where fop.Predicate, set repositories.Row) ([]repositories.Row, error) {
	var out []repositories.Row
	err := db.write(ctx, "update "+m.Name, func(ex *executor) (err error) {
		out, err = ex.update(m, where, set)
		return err
	})
	return out, err
}

func (db *DB) Delete(ctx context.Context, m *schema.Model, where fop.Predicate, limit int) ([]repositories.Row, error) {
	var out []repositories.Row
	err := db.write(ctx, "delete "+m.Name, func(ex *executor) (err error) {
		out, err = ex.delete(m, where, limit)
		return err
	})
	return out, err
}

func (db *DB) Aggregate(ctx context.Context, m *schema.Model, q repositories.Query, aggs fop.Aggregates) (fop.AggregateResult, error) {
	var res fop.AggregateResult
	err := db.read(ctx, "aggregate "+m.Name, func(ex *executor) error {
		res = ex.aggregate(m, q, aggs)
		return nil
	})
	return res, err
}

func (db *DB) GroupBy(ctx context.Context, m *schema.Model, q repositories.GroupQuery) ([]fop.GroupRow, error) {
	var out []fop.GroupRow
	err := db.read(ctx, "groupBy "+m.Name, func(ex *executor) error {
		out = ex.groupBy(m, q)
		return nil
	})
	return out, err
}

func (db *DB) Links(ctx context.Context, link *schema.Link, sources []any) ([]repositories.Pair, error) {
	var out []repositories.Pair
	err := db.read(ctx, "links "+link.Table, func(ex *executor) error {
		out = ex.pairs(link, sources)
		return nil
	})
	return out, err
}

func (db *DB) Link(ctx context.Context, link *schema.Link, pairs []repositories.Pair) error {
	return db.write(ctx, "link "+link.Table, func(ex *executor) error {
		return ex.link(link, pairs)
	})
}

func (db *DB) Unlink(ctx context.Context, link *schema.Link, source any, targets []any) error {
	return db.write(ctx, "unlink "+link.Table, func(ex *executor) error {
		ex.unlink(link, source, targets)
		return nil
	})
}

// Atomic runs fn in a transaction committed when fn returns nil.
func (db *DB) Atomic(ctx context.Context, fn func(repositories.Storer) error) error {
	tx, err := db.Begin(ctx, repositories.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// QueryRaw is not supported; the store has no query language.
func (db *DB) QueryRaw(ctx context.Context, query string, args ...any) ([]repositories.Row, error) {
	return nil, fmt.Errorf("memorydb raw query: %w", repositories.ErrOperationNotSupported)
}

// ExecRaw is not supported; the store has no query language.
func (db *DB) ExecRaw(ctx context.Context, query string, args ...any) (int64, error) {
	return 0, fmt.Errorf("memorydb raw exec: %w", repositories.ErrOperationNotSupported)
}

// Begin opens a transaction. It waits for the write lock until ctx is done.
// Every isolation level behaves as serializable.
func (db *DB) Begin(ctx context.Context, opts repositories.TxOptions) (repositories.Tx, error) {
	if err := db.acquire(ctx); err != nil {
		return nil, repositories.TransactionError(repositories.ErrTransactionTimeout,
			fmt.Sprintf("unable to start a transaction in the given time: %v", err))
	}
	db.mu.RLock()
	closed, working := db.closed, db.state.clone()
	db.mu.RUnlock()
	if closed {
		db.release()
		return nil, repositories.ErrDisconnected
	}
	db.log.DebugContext(ctx, "memorydb: begin", "isolation", isolationName(opts.Isolation))
	return &Tx{db: db, working: working}, nil
}

func isolationName(level repositories.IsolationLevel) string {
	if level == repositories.IsolationDefault {
		return "Serializable"
	}
	return string(level)
}

func (db *DB) Ping(ctx context.Context) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return repositories.ErrDisconnected
	}
	return nil
}

// Close drops the data. Further calls fail with ErrDisconnected.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
	db.state = newState()
	return nil
}

// Len returns the number of rows stored for model.
func (db *DB) Len(model string) int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.state.tables[model])
}

// Tx is an open transaction. It works on a private copy of the state that
// replaces the committed state on Commit.
type Tx struct {
	db      *DB
	mu      sync.Mutex
	working *state
	done    bool
}

func (tx *Tx) run(ctx context.Context, query string, write bool, fn func(ex *executor) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return repositories.TransactionError(repositories.ErrTransactionClosed,
			"transaction already closed: a query cannot be executed on a committed or rolled back transaction")
	}
	defer tx.db.emit(query, time.Now())
	if !write {
		return fn(tx.db.executor(tx.working))
	}
	next := tx.working.clone()
	if err := fn(tx.db.executor(next)); err != nil {
		return err
	}
	tx.working = next
	return nil
}

func (tx *Tx) Find(ctx context.Context, m *schema.Model, q repositories.Query) ([]repositories.Row, error) {
	var rows []repositories.Row
	err := tx.run(ctx, "find "+m.Name, false, func(ex *executor) error {
		rows = ex.find(m, q)
		return nil
	})
	return rows, err
}

func (tx *Tx) Insert(ctx context.Context, m *schema.Model, rows []repositories.Row, skipDuplicates bool) ([]repositories.Row, error) {
	var out []repositories.Row
	err := tx.run(ctx, "insert "+m.Name, true, func(ex *executor) (err error) {
		out, err = ex.insert(m, rows, skipDuplicates)
		return err
	})
	return out, err
}

func (tx *Tx) Update(ctx context.Context, m *schema.Model, where fop.Predicate, set repositories.Row) ([]repositories.Row, error) {
	var out []repositories.Row
	err := tx.run(ctx, "update "+m.Name, true, func(ex *executor) (err error) {
		out, err = ex.update(m, where, set)
		return err
	})
	return out, err
}

func (tx *Tx) Delete(ctx context.Context, m *schema.Model, where fop.Predicate, limit int) ([]repositories.Row, error) {
	var out []repositories.Row
	err := tx.run(ctx, "delete "+m.Name, true, func(ex *executor) (err error) {
		out, err = ex.delete(m, where, limit)
		return err
	})
	return out, err
}

func (tx *Tx) Aggregate(ctx context.Context, m *schema.Model, q repositories.Query, aggs fop.Aggregates) (fop.AggregateResult, error) {
	var res fop.AggregateResult
	err := tx.run(ctx, "aggregate "+m.Name, false, func(ex *executor) error {
		res = ex.aggregate(m, q, aggs)
		return nil
	})
	return res, err
}

func (tx *Tx) GroupBy(ctx context.Context, m *schema.Model, q repositories.GroupQuery) ([]fop.GroupRow, error) {
	var out []fop.GroupRow
	err := tx.run(ctx, "groupBy "+m.Name, false, func(ex *executor) error {
		out = ex.groupBy(m, q)
		return nil
	})
	return out, err
}

func (tx *Tx) Links(ctx context.Context, link *schema.Link, sources []any) ([]repositories.Pair, error) {
	var out []repositories.Pair
	err := tx.run(ctx, "links "+link.Table, false, func(ex *executor) error {
		out = ex.pairs(link, sources)
		return nil
	})
	return out, err
}

func (tx *Tx) Link(ctx context.Context, link *schema.Link, pairs []repositories.Pair) error {
	return tx.run(ctx, "link "+link.Table, true, func(ex *executor) error {
		return ex.link(link, pairs)
	})
}

func (tx *Tx) Unlink(ctx context.Context, link *schema.Link, source any, targets []any) error {
	return tx.run(ctx, "unlink "+link.Table, true, func(ex *executor) error {
		ex.unlink(link, source, targets)
		return nil
	})
}

// Atomic runs fn against the transaction itself.
func (tx *Tx) Atomic(ctx context.Context, fn func(repositories.Storer) error) error {
	return fn(tx)
}

func (tx *Tx) QueryRaw(ctx context.Context, query string, args ...any) ([]repositories.Row, error) {
	return tx.db.QueryRaw(ctx, query, args...)
}

func (tx *Tx) ExecRaw(ctx context.Context, query string, args ...any) (int64, error) {
	return tx.db.ExecRaw(ctx, query, args...)
}

// Commit publishes the transaction's writes.
func (tx *Tx) Commit(ctx context.Context) error {
	return tx.finish(ctx, true)
}

// Rollback discards the transaction's writes.
func (tx *Tx) Rollback(ctx context.Context) error {
	return tx.finish(ctx, false)
}

func (tx *Tx) finish(ctx context.Context, commit bool) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	verb := "rollback"
	if commit {
		verb = "commit"
	}
	if tx.done {
		return repositories.TransactionError(repositories.ErrTransactionClosed,
			fmt.Sprintf("transaction already closed: a %s cannot be executed on a finished transaction", verb))
	}
	tx.done = true
	defer tx.db.release()
	if commit {
		tx.db.mu.Lock()
		tx.db.state = tx.working
		tx.db.mu.Unlock()
	}
	tx.db.log.DebugContext(ctx, "memorydb: "+verb)
	return nil
}
