// Package commands holds the subcommands of the tooling binary.
package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jrazmi/growlog/core/client"
	"github.com/jrazmi/growlog/infrastructure/postgresdb"
	"github.com/jrazmi/growlog/infrastructure/sqldb"
	"github.com/jrazmi/growlog/infrastructure/sqlitedb"
	"github.com/jrazmi/growlog/sdk/logger"
)

// ErrHelp provides context that help was given.
var ErrHelp = errors.New("provided help")

// Migrate applies the embedded migrations of the configured backend.
func Migrate(ctx context.Context, log *logger.Logger, cfg client.Config) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	backend, err := client.BackendOf(cfg.DatasourceURL)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "migration started", "backend", backend)

	var applied []sqldb.Migration
	switch backend {
	case client.BackendPostgres:
		pool, err := openPostgres(ctx, log, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := postgresdb.StatusCheck(ctx, pool); err != nil {
			return fmt.Errorf("database status check failed: %w", err)
		}
		log.InfoContext(ctx, "database status check successful", "step", "running migrations")
		if applied, err = postgresdb.Migrate(ctx, pool, log); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

	case client.BackendSqlite:
		opts := client.SqliteOptions(cfg)
		if opts.Path == "" {
			log.InfoContext(ctx, "in-memory sqlite is migrated on connect, nothing to do")
			return nil
		}
		db, err := openSqlite(ctx, opts)
		if err != nil {
			return err
		}
		defer db.Close()
		if applied, err = sqlitedb.Migrate(ctx, db, log); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

	default:
		log.InfoContext(ctx, "memory backend has no schema, nothing to do")
		return nil
	}

	for _, m := range applied {
		log.InfoContext(ctx, "migration", "version", m.Version, "checksum", m.Checksum, "applied_now", m.Applied)
	}
	log.InfoContext(ctx, "migrations completed successfully", "count", len(applied))
	return nil
}

func openPostgres(ctx context.Context, log *logger.Logger, cfg client.Config) (*postgresdb.Pool, error) {
	pool, err := postgresdb.NewPool(ctx, cfg.Postgres,
		postgresdb.WithDatabaseURL(cfg.DatasourceURL),
		postgresdb.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return pool, nil
}

func openSqlite(ctx context.Context, opts sqlitedb.Options) (*sql.DB, error) {
	db, err := sqlitedb.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", opts.Path, err)
	}
	return db, nil
}
