// Package sqldb compiles delegate queries into SQL and runs them against a
// relational backend. Backends provide a Dialect and a Conn; the Store here
// does the rest.
package sqldb

import (
	"context"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

// Result holds the materialized rows of a query.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Querier runs statements. Pools, connections and transactions implement it.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (Result, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
}

// TxConn is a Querier bound to an open transaction.
type TxConn interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Conn is a connected backend.
type Conn interface {
	Querier
	Begin(ctx context.Context, opts repositories.TxOptions) (TxConn, error)
	Ping(ctx context.Context) error
	Close() error
}

// Dialect covers what differs between SQL backends.
type Dialect interface {
	// Name is reported as the target of query events.
	Name() string
	// Placeholder returns the marker of the n-th argument, counting from 1.
	Placeholder(n int) string

	// Encode converts a canonical value of f into a driver argument.
	Encode(f *schema.Field, v any) (any, error)
	// Decode converts a driver value of f into its canonical form.
	Decode(f *schema.Field, v any) (any, error)

	// Like matches col against a contains, startsWith or endsWith operand.
	Like(col string, op fop.Op, value string, insensitive bool, arg func(any) string) string
	// ListCondition filters a scalar-list column.
	ListCondition(col string, op fop.Op, value any, arg func(any) string) (string, error)
	// JSON wraps an expression so JSON values compare by content.
	JSON(expr string) string

	// LimitOffset renders the page clause; take below zero means no limit.
	LimitOffset(take, skip int) string
	IntType() string
	FloatType() string

	// MapError translates a driver error on model into the repositories
	// error taxonomy.
	MapError(m *schema.Model, err error) error
}

// Statement is compiled SQL with its arguments.
type Statement struct {
	SQL  string
	Args []any
}

// FieldsOf returns the field names of m stored in columns, skipping unknown
// columns.
func FieldsOf(m *schema.Model, columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		for _, f := range m.Fields {
			if f.Column == c {
				out = append(out, f.Name)
				break
			}
		}
	}
	return out
}
