package sqldb

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

type options struct {
	schema *schema.Schema
	log    *logger.Logger
	hook   repositories.QueryHook
}

// Option configures a Store.
type Option func(*options)

// WithSchema runs the store over s instead of the default schema.
func WithSchema(s *schema.Schema) Option {
	return func(o *options) {
		o.schema = s
	}
}

// WithLogger sets the logger for statement failures.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithQueryHook receives an event for every statement.
func WithQueryHook(hook repositories.QueryHook) Option {
	return func(o *options) {
		o.hook = hook
	}
}

// Store implements repositories.Database over a Conn.
type Store struct {
	conn     Conn
	q        Querier
	compiler Compiler
	log      *logger.Logger
	hook     repositories.QueryHook
}

// New returns a store running statements on conn in dialect d.
func New(conn Conn, d Dialect, opts ...Option) *Store {
	o := options{schema: schema.Default}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewDiscard()
	}
	return &Store{
		conn:     conn,
		q:        conn,
		compiler: Compiler{Dialect: d, Schema: o.schema},
		log:      o.log,
		hook:     o.hook,
	}
}

// Compiler returns the statement compiler of the store.
func (s *Store) Compiler() Compiler {
	return s.compiler
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Begin opens a transaction.
func (s *Store) Begin(ctx context.Context, opts repositories.TxOptions) (repositories.Tx, error) {
	txc, err := s.conn.Begin(ctx, opts)
	if err != nil {
		return nil, &repositories.EngineError{Err: fmt.Errorf("begin transaction: %w", err)}
	}
	return &Tx{store: s.bound(txc), conn: txc}, nil
}

// bound returns a copy of s running statements on q.
func (s *Store) bound(q Querier) *Store {
	c := *s
	c.q = q
	return &c
}

// Atomic runs fn in a new transaction, committed when fn succeeds.
func (s *Store) Atomic(ctx context.Context, fn func(repositories.Storer) error) error {
	tx, err := s.Begin(ctx, repositories.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.log.ErrorContext(ctx, "rollback", "error", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) emit(query string, args []any, start time.Time) {
	if s.hook == nil {
		return
	}
	s.hook(repositories.QueryEvent{
		Query:    query,
		Params:   args,
		Duration: time.Since(start),
		Target:   s.compiler.Dialect.Name(),
	})
}

func (s *Store) query(ctx context.Context, m *schema.Model, st Statement) (Result, error) {
	start := time.Now()
	res, err := s.q.Query(ctx, st.SQL, st.Args...)
	s.emit(st.SQL, st.Args, start)
	if err != nil {
		return Result{}, s.compiler.Dialect.MapError(m, err)
	}
	return res, nil
}

func (s *Store) exec(ctx context.Context, m *schema.Model, st Statement) (int64, error) {
	start := time.Now()
	n, err := s.q.Exec(ctx, st.SQL, st.Args...)
	s.emit(st.SQL, st.Args, start)
	if err != nil {
		return 0, s.compiler.Dialect.MapError(m, err)
	}
	return n, nil
}

// decode converts result rows holding every field of m, in declaration
// order.
func (s *Store) decode(m *schema.Model, res Result) ([]repositories.Row, error) {
	rows := make([]repositories.Row, 0, len(res.Rows))
	for _, vals := range res.Rows {
		if len(vals) != len(m.Fields) {
			return nil, fmt.Errorf("%s: got %d columns, want %d", m.Name, len(vals), len(m.Fields))
		}
		r := make(repositories.Row, len(m.Fields))
		for i, f := range m.Fields {
			v, err := s.compiler.Dialect.Decode(f, vals[i])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", m.Name, err)
			}
			r[f.Name] = v
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func (s *Store) rows(ctx context.Context, m *schema.Model, st Statement, err error) ([]repositories.Row, error) {
	if err != nil {
		return nil, err
	}
	res, err := s.query(ctx, m, st)
	if err != nil {
		return nil, err
	}
	return s.decode(m, res)
}

func (s *Store) Find(ctx context.Context, m *schema.Model, q repositories.Query) ([]repositories.Row, error) {
	st, err := s.compiler.Find(m, q)
	return s.rows(ctx, m, st, err)
}

func (s *Store) Insert(ctx context.Context, m *schema.Model, rows []repositories.Row, skipDuplicates bool) ([]repositories.Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	st, err := s.compiler.Insert(m, rows, skipDuplicates)
	return s.rows(ctx, m, st, err)
}

func (s *Store) Update(ctx context.Context, m *schema.Model, where fop.Predicate, set repositories.Row) ([]repositories.Row, error) {
	if len(set) == 0 {
		return s.Find(ctx, m, repositories.All(where))
	}
	st, err := s.compiler.Update(m, where, set)
	return s.rows(ctx, m, st, err)
}

func (s *Store) Delete(ctx context.Context, m *schema.Model, where fop.Predicate, limit int) ([]repositories.Row, error) {
	st, err := s.compiler.Delete(m, where, limit)
	return s.rows(ctx, m, st, err)
}

func (s *Store) Aggregate(ctx context.Context, m *schema.Model, q repositories.Query, aggs fop.Aggregates) (fop.AggregateResult, error) {
	st, err := s.compiler.Aggregate(m, q, aggs)
	if err != nil {
		return fop.AggregateResult{}, err
	}
	res, err := s.query(ctx, m, st)
	if err != nil {
		return fop.AggregateResult{}, err
	}
	if len(res.Rows) != 1 {
		return fop.AggregateResult{}, fmt.Errorf("%s: aggregate returned %d rows", m.Name, len(res.Rows))
	}
	return s.aggregateResult(m, aggSpecs(aggs), res.Rows[0])
}

func (s *Store) GroupBy(ctx context.Context, m *schema.Model, q repositories.GroupQuery) ([]fop.GroupRow, error) {
	st, err := s.compiler.GroupBy(m, q)
	if err != nil {
		return nil, err
	}
	res, err := s.query(ctx, m, st)
	if err != nil {
		return nil, err
	}
	specs := aggSpecs(q.Aggregates)
	groups := make([]fop.GroupRow, 0, len(res.Rows))
	for _, vals := range res.Rows {
		g := fop.GroupRow{Keys: make(map[string]any, len(q.By))}
		for i, name := range q.By {
			f, _ := m.Field(name)
			v, err := s.compiler.Dialect.Decode(f, vals[i])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", m.Name, err)
			}
			g.Keys[name] = v
		}
		if g.AggregateResult, err = s.aggregateResult(m, specs, vals[len(q.By):]); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

var (
	countField = &schema.Field{Name: fop.CountAll, Kind: schema.KindInt}
	floatField = &schema.Field{Name: string(fop.AggAvg), Kind: schema.KindFloat, Nullable: true}
)

func (s *Store) aggregateResult(m *schema.Model, specs []aggSpec, vals []any) (fop.AggregateResult, error) {
	var res fop.AggregateResult
	d := s.compiler.Dialect
	for i, spec := range specs {
		f, _ := m.Field(spec.field)
		switch spec.agg {
		case fop.AggCount:
			v, err := d.Decode(countField, vals[i])
			if err != nil {
				return res, err
			}
			if res.Count == nil {
				res.Count = map[string]int64{}
			}
			res.Count[spec.field], _ = v.(int64)
		case fop.AggAvg:
			v, err := d.Decode(floatField, vals[i])
			if err != nil {
				return res, err
			}
			if res.Avg == nil {
				res.Avg = map[string]*float64{}
			}
			if fl, ok := v.(float64); ok {
				res.Avg[spec.field] = &fl
			} else {
				res.Avg[spec.field] = nil
			}
		default:
			kind := f.Kind
			if spec.agg == fop.AggSum && kind != schema.KindInt {
				kind = schema.KindFloat
			}
			v, err := d.Decode(&schema.Field{Name: f.Name, Kind: kind, Enum: f.Enum, Nullable: true}, vals[i])
			if err != nil {
				return res, err
			}
			target := &res.Sum
			switch spec.agg {
			case fop.AggMin:
				target = &res.Min
			case fop.AggMax:
				target = &res.Max
			}
			if *target == nil {
				*target = map[string]any{}
			}
			(*target)[spec.field] = v
		}
	}
	return res, nil
}

var linkField = &schema.Field{Name: "id", Kind: schema.KindString}

func (s *Store) Links(ctx context.Context, link *schema.Link, sources []any) ([]repositories.Pair, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	st, err := s.compiler.Links(link, sources)
	if err != nil {
		return nil, err
	}
	res, err := s.query(ctx, nil, st)
	if err != nil {
		return nil, err
	}
	pairs := make([]repositories.Pair, 0, len(res.Rows))
	for _, vals := range res.Rows {
		src, err := s.compiler.Dialect.Decode(linkField, vals[0])
		if err != nil {
			return nil, err
		}
		dst, err := s.compiler.Dialect.Decode(linkField, vals[1])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, repositories.Pair{Source: src, Target: dst})
	}
	return pairs, nil
}

func (s *Store) Link(ctx context.Context, link *schema.Link, pairs []repositories.Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	st, err := s.compiler.Link(link, pairs)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, nil, st)
	return err
}

func (s *Store) Unlink(ctx context.Context, link *schema.Link, source any, targets []any) error {
	if targets != nil && len(targets) == 0 {
		return nil
	}
	st, err := s.compiler.Unlink(link, source, targets)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, nil, st)
	return err
}

// QueryRaw runs a query written in the backend's own SQL and returns its
// rows keyed by column name.
func (s *Store) QueryRaw(ctx context.Context, query string, args ...any) ([]repositories.Row, error) {
	res, err := s.query(ctx, nil, Statement{SQL: query, Args: args})
	if err != nil {
		return nil, err
	}
	rows := make([]repositories.Row, len(res.Rows))
	for i, vals := range res.Rows {
		r := make(repositories.Row, len(res.Columns))
		for j, c := range res.Columns {
			r[c] = rawValue(vals[j])
		}
		rows[i] = r
	}
	return rows, nil
}

// ExecRaw runs a statement written in the backend's own SQL and returns the
// number of affected rows.
func (s *Store) ExecRaw(ctx context.Context, query string, args ...any) (int64, error) {
	return s.exec(ctx, nil, Statement{SQL: query, Args: args})
}

func rawValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC()
	}
	return v
}

// Tx is a Store bound to an open transaction. After Commit or Rollback
// every call fails with ErrTransactionClosed.
type Tx struct {
	store *Store
	conn  TxConn

	mu   sync.Mutex
	done bool
}

func (tx *Tx) check() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return repositories.TransactionError(repositories.ErrTransactionClosed, "transaction already closed")
	}
	return nil
}

func (tx *Tx) Find(ctx context.Context, m *schema.Model, q repositories.Query) ([]repositories.Row, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.store.Find(ctx, m, q)
}

func (tx *Tx) Insert(ctx context.Context, m *schema.Model, rows []repositories.Row, skipDuplicates bool) ([]repositories.Row, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.store.Insert(ctx, m, rows, skipDuplicates)
}

func (tx *Tx) Update(ctx context.Context, m *schema.Model, where fop.Predicate, set repositories.Row) ([]repositories.Row, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.store.Update(ctx, m, where, set)
}

func (tx *Tx) Delete(ctx context.Context, m *schema.Model, where fop.Predicate, limit int) ([]repositories.Row, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.store.Delete(ctx, m, where, limit)
}

func (tx *Tx) Aggregate(ctx context.Context, m *schema.Model, q repositories.Query, aggs fop.Aggregates) (fop.AggregateResult, error) {
	if err := tx.check(); err != nil {
		return fop.AggregateResult{}, err
	}
	return tx.store.Aggregate(ctx, m, q, aggs)
}

func (tx *Tx) GroupBy(ctx context.Context, m *schema.Model, q repositories.GroupQuery) ([]fop.GroupRow, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.store.GroupBy(ctx, m, q)
}

func (tx *Tx) Links(ctx context.Context, link *schema.Link, sources []any) ([]repositories.Pair, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.store.Links(ctx, link, sources)
}

func (tx *Tx) Link(ctx context.Context, link *schema.Link, pairs []repositories.Pair) error {
	if err := tx.check(); err != nil {
		return err
	}
	return tx.store.Link(ctx, link, pairs)
}

func (tx *Tx) Unlink(ctx context.Context, link *schema.Link, source any, targets []any) error {
	if err := tx.check(); err != nil {
		return err
	}
	return tx.store.Unlink(ctx, link, source, targets)
}

// Atomic runs fn within the transaction itself.
func (tx *Tx) Atomic(ctx context.Context, fn func(repositories.Storer) error) error {
	if err := tx.check(); err != nil {
		return err
	}
	return fn(tx)
}

func (tx *Tx) QueryRaw(ctx context.Context, query string, args ...any) ([]repositories.Row, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.store.QueryRaw(ctx, query, args...)
}

func (tx *Tx) ExecRaw(ctx context.Context, query string, args ...any) (int64, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}
	return tx.store.ExecRaw(ctx, query, args...)
}

// Commit makes the transaction's writes visible.
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
	if tx.done {
		return repositories.TransactionError(repositories.ErrTransactionClosed, "transaction already closed")
	}
	tx.done = true
	if commit {
		if err := tx.conn.Commit(ctx); err != nil {
			return tx.store.compiler.Dialect.MapError(nil, err)
		}
		return nil
	}
	return tx.conn.Rollback(ctx)
}
