package postgresdb

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jrazmi/growlog/infrastructure/sqldb"
	migrations "github.com/jrazmi/growlog/schema"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Migrate applies the embedded PostgreSQL migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) ([]sqldb.Migration, error) {
	return sqldb.Migrator{
		Conn:    NewConn(pool),
		Dialect: Dialect{},
		FS:      migrations.PostgresMigrations(),
		Dir:     ".",
		Log:     log,
	}.Migrate(ctx)
}
