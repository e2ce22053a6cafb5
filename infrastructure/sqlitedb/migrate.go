package sqlitedb

import (
	"context"
	"database/sql"

	"github.com/jrazmi/growlog/infrastructure/sqldb"
	migrations "github.com/jrazmi/growlog/schema"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Migrate applies the embedded SQLite migrations.
func Migrate(ctx context.Context, db *sql.DB, log *logger.Logger) ([]sqldb.Migration, error) {
	return sqldb.Migrator{
		Conn:    NewConn(db),
		Dialect: Dialect{},
		FS:      migrations.SqliteMigrations(),
		Dir:     ".",
		Log:     log,
	}.Migrate(ctx)
}
