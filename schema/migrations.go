// Package schema contains embedded migration files.
package schema

import (
	"embed"
	"io/fs"
)

//go:embed pgmigrations/*.sql sqlitemigrations/*.sql
var migrationsFS embed.FS

// PostgresMigrations holds the forward-only migrations for PostgreSQL.
func PostgresMigrations() fs.FS {
	sub, _ := fs.Sub(migrationsFS, "pgmigrations")
	return sub
}

// SqliteMigrations holds the forward-only migrations for SQLite.
func SqliteMigrations() fs.FS {
	sub, _ := fs.Sub(migrationsFS, "sqlitemigrations")
	return sub
}
