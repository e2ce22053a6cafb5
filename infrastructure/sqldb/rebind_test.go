package sqldb_test

import (
	"testing"

	"github.com/jrazmi/growlog/infrastructure/postgresdb"
	"github.com/jrazmi/growlog/infrastructure/sqldb"
	"github.com/jrazmi/growlog/infrastructure/sqlitedb"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		d     sqldb.Dialect
		query string
		want  string
	}{
		{postgresdb.Dialect{}, `SELECT * FROM "users" WHERE "email" = ? AND "role" = ?`, `SELECT * FROM "users" WHERE "email" = $1 AND "role" = $2`},
		{sqlitedb.Dialect{}, `SELECT * FROM "users" WHERE "email" = ? AND "role" = ?`, `SELECT * FROM "users" WHERE "email" = ?1 AND "role" = ?2`},
		{postgresdb.Dialect{}, `SELECT '?' AS q, "a?b" FROM t WHERE x = ?`, `SELECT '?' AS q, "a?b" FROM t WHERE x = $1`},
		{postgresdb.Dialect{}, `SELECT 'it''s' WHERE y = ?`, `SELECT 'it''s' WHERE y = $1`},
	}
	for _, tt := range tests {
		if got := sqldb.Rebind(tt.d, tt.query); got != tt.want {
			t.Errorf("Rebind(%s)\n got %s\nwant %s", tt.query, got, tt.want)
		}
	}
}
