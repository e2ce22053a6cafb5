package postgresdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/infrastructure/sqldb"
)

// querier is what pgxpool.Pool and pgx.Tx have in common.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func query(ctx context.Context, q querier, sql string, args []any) (sqldb.Result, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return sqldb.Result{}, err
	}
	defer rows.Close()

	var res sqldb.Result
	for _, fd := range rows.FieldDescriptions() {
		res.Columns = append(res.Columns, fd.Name)
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return sqldb.Result{}, err
		}
		res.Rows = append(res.Rows, vals)
	}
	return res, rows.Err()
}

func exec(ctx context.Context, q querier, sql string, args []any) (int64, error) {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Conn adapts a pool to sqldb.Conn.
type Conn struct {
	pool *pgxpool.Pool
}

// NewConn wraps pool.
func NewConn(pool *pgxpool.Pool) *Conn {
	return &Conn{pool: pool}
}

func (c *Conn) Query(ctx context.Context, sql string, args ...any) (sqldb.Result, error) {
	return query(ctx, c.pool, sql, args)
}

func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return exec(ctx, c.pool, sql, args)
}

func (c *Conn) Ping(ctx context.Context) error {
	return StatusCheck(ctx, c.pool)
}

func (c *Conn) Close() error {
	c.pool.Close()
	return nil
}

func (c *Conn) Begin(ctx context.Context, opts repositories.TxOptions) (sqldb.TxConn, error) {
	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: isoLevel(opts.Isolation)})
	if err != nil {
		return nil, err
	}
	return txConn{tx: tx}, nil
}

func isoLevel(l repositories.IsolationLevel) pgx.TxIsoLevel {
	switch l {
	case repositories.IsolationReadUncommitted:
		return pgx.ReadUncommitted
	case repositories.IsolationReadCommitted:
		return pgx.ReadCommitted
	case repositories.IsolationRepeatableRead, repositories.IsolationSnapshot:
		return pgx.RepeatableRead
	case repositories.IsolationSerializable:
		return pgx.Serializable
	}
	return ""
}

type txConn struct {
	tx pgx.Tx
}

func (t txConn) Query(ctx context.Context, sql string, args ...any) (sqldb.Result, error) {
	return query(ctx, t.tx, sql, args)
}

func (t txConn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return exec(ctx, t.tx, sql, args)
}

func (t txConn) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t txConn) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
