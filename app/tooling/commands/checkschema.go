package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrazmi/growlog/core/client"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/infrastructure/postgresdb"
	"github.com/jrazmi/growlog/infrastructure/sqldb"
	"github.com/jrazmi/growlog/infrastructure/sqlitedb"
	"github.com/jrazmi/growlog/schema/reflector"
	"github.com/jrazmi/growlog/sdk/logger"
)

// ErrDrift is returned by CheckSchema when the database differs from the
// models.
var ErrDrift = errors.New("database schema drifted from models")

// CheckSchema reflects the database and reports where it differs from the
// models. With -output the reflection is also written as JSON.
func CheckSchema(ctx context.Context, log *logger.Logger, cfg client.Config, args []string) error {
	fs := flag.NewFlagSet("check-schema", flag.ContinueOnError)
	schemaName := fs.String("schema", "public", "Schema to reflect (postgres only)")
	outputDir := fs.String("output", "", "Directory to write the reflected schema to")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ErrHelp
		}
		return fmt.Errorf("parse flags: %w", err)
	}

	conn, store, err := openReflection(ctx, log, cfg)
	if err != nil {
		return err
	}
	if conn == nil {
		log.InfoContext(ctx, "memory backend has no schema, nothing to check")
		return nil
	}
	defer conn.Close()

	log.InfoContext(ctx, "reflecting schema", "source", store.GetSourceType(), "schema", *schemaName)
	reflected, err := reflector.NewReflector(store).Reflect(ctx, *schemaName)
	if err != nil {
		return fmt.Errorf("reflect schema: %w", err)
	}
	log.InfoContext(ctx, "discovered tables", "count", len(reflected.Tables))

	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		jsonPath := filepath.Join(*outputDir, *schemaName+".json")
		if err := reflector.WriteJSON(reflected, jsonPath); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		log.InfoContext(ctx, "generated JSON", "path", jsonPath)
	}

	drift := reflector.Diff(reflected, schema.Default)
	for _, d := range drift {
		log.WarnContext(ctx, "drift", "kind", d.Kind, "table", d.Table, "column", d.Column, "detail", d.Detail)
	}
	if len(drift) > 0 {
		return fmt.Errorf("%d differences: %w", len(drift), ErrDrift)
	}
	log.InfoContext(ctx, "schema matches models")
	return nil
}

// openReflection returns a nil conn for the memory backend.
func openReflection(ctx context.Context, log *logger.Logger, cfg client.Config) (sqldb.Conn, reflector.Store, error) {
	backend, err := client.BackendOf(cfg.DatasourceURL)
	if err != nil {
		return nil, nil, err
	}
	switch backend {
	case client.BackendPostgres:
		pool, err := openPostgres(ctx, log, cfg)
		if err != nil {
			return nil, nil, err
		}
		conn := postgresdb.NewConn(pool)
		return conn, reflector.NewPostgresStore(conn), nil
	case client.BackendSqlite:
		opts := client.SqliteOptions(cfg)
		db, err := openSqlite(ctx, opts)
		if err != nil {
			return nil, nil, err
		}
		if opts.Path == "" {
			if _, err := sqlitedb.Migrate(ctx, db, log); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		conn := sqlitedb.NewConn(db)
		return conn, reflector.NewSqliteStore(conn), nil
	}
	return nil, nil, nil
}
