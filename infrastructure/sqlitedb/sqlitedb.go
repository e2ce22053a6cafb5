// Package sqlitedb runs the delegates against SQLite through database/sql
// and the pure Go modernc driver.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/infrastructure/sqldb"
	"github.com/jrazmi/growlog/sdk/environment"
)

// Options represents the exportable database configuration
type Options struct {
	Path        string        `yaml:"path" env:"SQLITE_PATH" default:"growlog.db"`
	BusyTimeout time.Duration `yaml:"busy_timeout" env:"SQLITE_BUSY_TIMEOUT" default:"5s"`
	JournalMode string        `yaml:"journal_mode" env:"SQLITE_JOURNAL_MODE" default:"WAL"`
}

// NewFromEnv opens the database configured by environment variables.
func NewFromEnv(ctx context.Context, prefix string) (*sql.DB, error) {
	var cfg Options
	if err := environment.ParseEnvTags(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	return Open(ctx, cfg)
}

// DSN renders cfg as a modernc connection string. Foreign keys are enabled
// on every connection.
func DSN(cfg Options) string {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	if cfg.BusyTimeout > 0 {
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	}
	if cfg.JournalMode != "" && path != ":memory:" {
		q.Add("_pragma", "journal_mode("+strings.ToLower(cfg.JournalMode)+")")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.Encode()
}

// Open opens and pings the database. sqlite serializes writers, so the
// pool holds a single connection; that also keeps an in-memory database
// alive and shared.
func Open(ctx context.Context, cfg Options) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// NewStore returns a delegate store over db.
func NewStore(db *sql.DB, opts ...sqldb.Option) *sqldb.Store {
	return sqldb.New(NewConn(db), Dialect{}, opts...)
}

// queryer is what *sql.DB and *sql.Tx have in common.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func query(ctx context.Context, q queryer, stmt string, args []any) (sqldb.Result, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return sqldb.Result{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return sqldb.Result{}, err
	}
	res := sqldb.Result{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return sqldb.Result{}, err
		}
		res.Rows = append(res.Rows, vals)
	}
	return res, rows.Err()
}

func exec(ctx context.Context, q queryer, stmt string, args []any) (int64, error) {
	r, err := q.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return r.RowsAffected()
}

// Conn adapts a *sql.DB to sqldb.Conn.
type Conn struct {
	db *sql.DB
}

// NewConn wraps db.
func NewConn(db *sql.DB) *Conn {
	return &Conn{db: db}
}

func (c *Conn) Query(ctx context.Context, stmt string, args ...any) (sqldb.Result, error) {
	return query(ctx, c.db, stmt, args)
}

func (c *Conn) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	return exec(ctx, c.db, stmt, args)
}

func (c *Conn) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *Conn) Close() error { return c.db.Close() }

// Begin starts a transaction. sqlite transactions are serializable
// whatever level is asked for.
func (c *Conn) Begin(ctx context.Context, _ repositories.TxOptions) (sqldb.TxConn, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return txConn{tx: tx}, nil
}

type txConn struct {
	tx *sql.Tx
}

func (t txConn) Query(ctx context.Context, stmt string, args ...any) (sqldb.Result, error) {
	return query(ctx, t.tx, stmt, args)
}

func (t txConn) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	return exec(ctx, t.tx, stmt, args)
}

func (t txConn) Commit(context.Context) error   { return t.tx.Commit() }
func (t txConn) Rollback(context.Context) error { return t.tx.Rollback() }
