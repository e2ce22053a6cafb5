// Package repositories holds the generic delegate engine shared by the
// per-model repositories, the Storer contract backends implement, and the
// error taxonomy.
package repositories

import (
	"context"
	"time"

	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

// Row is one record keyed by API field name. Values are in the canonical
// form of schema.Normalize; loaded relations hold Row, []Row or nil, and
// "_count" holds map[string]int64.
type Row map[string]any

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Query selects rows of one model. Take below zero means no limit.
type Query struct {
	Where   fop.Predicate
	OrderBy []fop.Order
	Take    int
	Skip    int
}

// All is a Query without limit over rows matching where.
func All(where fop.Predicate, orderBy ...fop.Order) Query {
	return Query{Where: where, OrderBy: orderBy, Take: -1}
}

// GroupQuery groups the rows matching Where.
type GroupQuery struct {
	Where   fop.Predicate
	By      []string
	Having  fop.Predicate
	OrderBy []fop.GroupOrder
	Take    int
	Skip    int
	fop.Aggregates
}

// Pair is one row of a link table: source and target primary keys.
type Pair struct {
	Source any
	Target any
}

// IsolationLevel is a transaction isolation level.
type IsolationLevel string

const (
	IsolationDefault         IsolationLevel = ""
	IsolationReadUncommitted IsolationLevel = "ReadUncommitted"
	IsolationReadCommitted   IsolationLevel = "ReadCommitted"
	IsolationRepeatableRead  IsolationLevel = "RepeatableRead"
	IsolationSnapshot        IsolationLevel = "Snapshot"
	IsolationSerializable    IsolationLevel = "Serializable"
)

// TxOptions configure a transaction.
type TxOptions struct {
	Isolation IsolationLevel
}

// Storer is implemented by every backend. Values in and out are canonical.
type Storer interface {
	// Find returns the rows matching q in order.
	Find(ctx context.Context, m *schema.Model, q Query) ([]Row, error)
	// Insert adds rows and returns them as stored. With skipDuplicates, rows
	// conflicting on any unique key are left out instead of failing.
	Insert(ctx context.Context, m *schema.Model, rows []Row, skipDuplicates bool) ([]Row, error)
	// Update assigns set on the rows matching where and returns them updated.
	Update(ctx context.Context, m *schema.Model, where fop.Predicate, set Row) ([]Row, error)
	// Delete removes up to limit rows matching where (limit <= 0: all),
	// applies the referential actions, and returns the removed rows.
	Delete(ctx context.Context, m *schema.Model, where fop.Predicate, limit int) ([]Row, error)
	// Aggregate computes aggregates over the window of rows q selects.
	Aggregate(ctx context.Context, m *schema.Model, q Query, aggs fop.Aggregates) (fop.AggregateResult, error)
	GroupBy(ctx context.Context, m *schema.Model, q GroupQuery) ([]fop.GroupRow, error)

	// Links returns the link rows whose source is one of sources.
	Links(ctx context.Context, link *schema.Link, sources []any) ([]Pair, error)
	// Link adds link rows, ignoring ones that exist.
	Link(ctx context.Context, link *schema.Link, pairs []Pair) error
	// Unlink removes the links of source to targets; nil targets removes all.
	Unlink(ctx context.Context, link *schema.Link, source any, targets []any) error

	// Atomic runs fn against a store whose writes commit together. Inside a
	// transaction it runs fn against the transaction itself.
	Atomic(ctx context.Context, fn func(Storer) error) error

	QueryRaw(ctx context.Context, query string, args ...any) ([]Row, error)
	ExecRaw(ctx context.Context, query string, args ...any) (int64, error)
}

// Tx is a Storer bound to an open transaction.
type Tx interface {
	Storer
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Database is a connected backend.
type Database interface {
	Storer
	Begin(ctx context.Context, opts TxOptions) (Tx, error)
	Ping(ctx context.Context) error
	Close() error
}

// QueryEvent describes one statement sent to a backend.
type QueryEvent struct {
	Query    string
	Params   []any
	Duration time.Duration
	Target   string
}

// QueryHook receives query events.
type QueryHook func(QueryEvent)
