package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/infrastructure/memorydb"
	"github.com/jrazmi/growlog/infrastructure/postgresdb"
	"github.com/jrazmi/growlog/infrastructure/sqldb"
	"github.com/jrazmi/growlog/infrastructure/sqlitedb"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Backend names.
const (
	BackendPostgres = "postgres"
	BackendSqlite   = "sqlite"
	BackendMemory   = "memory"
)

// backend is an open database and the dialect raw queries are rebound to.
// dialect is nil for the in-memory store.
type backend struct {
	db      repositories.Database
	dialect sqldb.Dialect
	name    string
}

// BackendOf reports which backend serves a datasource URL.
func BackendOf(datasourceURL string) (string, error) {
	scheme, _, ok := strings.Cut(datasourceURL, ":")
	if !ok {
		return "", fmt.Errorf("datasource url %q has no scheme", datasourceURL)
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return BackendPostgres, nil
	case "sqlite", "file":
		return BackendSqlite, nil
	case "memory":
		return BackendMemory, nil
	}
	return "", fmt.Errorf("unsupported datasource scheme %q", scheme)
}

// sqlitePath strips the scheme, and the slashes of sqlite:// forms, from a
// sqlite datasource URL.
func sqlitePath(datasourceURL string) string {
	_, rest, _ := strings.Cut(datasourceURL, ":")
	if strings.HasPrefix(rest, "//") {
		rest = strings.TrimPrefix(rest, "//")
	}
	if rest == ":memory:" {
		return ""
	}
	return rest
}

// SqliteOptions returns the sqlite options of cfg with the path taken from
// the datasource URL. An empty path is an in-memory database.
func SqliteOptions(cfg Config) sqlitedb.Options {
	opts := cfg.Sqlite
	opts.Path = sqlitePath(cfg.DatasourceURL)
	return opts
}

func openBackend(ctx context.Context, cfg Config, log *logger.Logger, hook repositories.QueryHook) (*backend, error) {
	name, err := BackendOf(cfg.DatasourceURL)
	if err != nil {
		return nil, &repositories.InitializationError{Code: "P1013", Err: err}
	}

	storeOpts := []sqldb.Option{sqldb.WithLogger(log), sqldb.WithQueryHook(hook)}
	switch name {
	case BackendPostgres:
		pool, err := postgresdb.NewPool(ctx, cfg.Postgres,
			postgresdb.WithDatabaseURL(cfg.DatasourceURL),
			postgresdb.WithLogger(log),
		)
		if err != nil {
			return nil, &repositories.InitializationError{Code: "P1001", Err: fmt.Errorf("%s: %w", redact(cfg.DatasourceURL), err)}
		}
		if cfg.AutoMigrate {
			if _, err := postgresdb.Migrate(ctx, pool, log); err != nil {
				pool.Close()
				return nil, &repositories.InitializationError{Code: "P3005", Err: err}
			}
		}
		return &backend{db: postgresdb.NewStore(pool, storeOpts...), dialect: postgresdb.Dialect{}, name: name}, nil

	case BackendSqlite:
		opts := SqliteOptions(cfg)
		db, err := sqlitedb.Open(ctx, opts)
		if err != nil {
			return nil, &repositories.InitializationError{Code: "P1001", Err: err}
		}
		// An in-memory database starts empty; it is unusable without tables.
		if cfg.AutoMigrate || opts.Path == "" {
			if _, err := sqlitedb.Migrate(ctx, db, log); err != nil {
				db.Close()
				return nil, &repositories.InitializationError{Code: "P3005", Err: err}
			}
		}
		return &backend{db: sqlitedb.NewStore(db, storeOpts...), dialect: sqlitedb.Dialect{}, name: name}, nil
	}

	return &backend{
		db:   memorydb.New(memorydb.WithLogger(log), memorydb.WithQueryHook(hook)),
		name: name,
	}, nil
}

// redact hides the password of a connection URL.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
