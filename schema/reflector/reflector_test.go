package reflector_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/infrastructure/sqlitedb"
	"github.com/jrazmi/growlog/schema/reflector"
	"github.com/jrazmi/growlog/sdk/logger"
)

func openSqlite(t *testing.T) *sqlitedb.Conn {
	t.Helper()
	db, err := sqlitedb.Open(context.Background(), sqlitedb.Options{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlitedb.NewConn(db)
}

func TestMigratedDatabaseHasNoDrift(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitedb.Open(ctx, sqlitedb.Options{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := sqlitedb.Migrate(ctx, db, logger.NewDiscard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ref := reflector.NewReflector(reflector.NewSqliteStore(sqlitedb.NewConn(db)))
	reflected, err := ref.Reflect(ctx, "main")
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}
	if reflected.Source != "sqlite" {
		t.Errorf("source = %q", reflected.Source)
	}

	users, ok := reflected.Tables["users"]
	if !ok {
		t.Fatalf("users table not reflected: %v", reflected.Tables)
	}
	role, ok := users.Column("role")
	if !ok || role.IsNullable || !role.HasDefault {
		t.Errorf("role column = %+v", role)
	}
	id, _ := users.Column("id")
	if !id.IsPrimaryKey {
		t.Errorf("id column = %+v", id)
	}

	if drift := reflector.Diff(reflected, schema.Default); len(drift) != 0 {
		t.Errorf("drift = %+v", drift)
	}
}

func TestDiffReportsDrift(t *testing.T) {
	ctx := context.Background()
	conn := openSqlite(t)

	stmts := []string{
		`CREATE TABLE tags (id TEXT PRIMARY KEY, name TEXT, created_at TEXT NOT NULL)`,
		`CREATE TABLE gardens (id TEXT PRIMARY KEY)`,
	}
	for _, s := range stmts {
		if _, err := conn.Exec(ctx, s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}

	reflected, err := reflector.NewReflector(reflector.NewSqliteStore(conn)).Reflect(ctx, "main")
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}
	drift := reflector.Diff(reflected, schema.Default)

	has := func(kind reflector.DriftKind, table, column string) bool {
		for _, d := range drift {
			if d.Kind == kind && d.Table == table && d.Column == column {
				return true
			}
		}
		return false
	}

	tests := []struct {
		kind   reflector.DriftKind
		table  string
		column string
	}{
		{reflector.MissingTable, "users", ""},
		{reflector.MissingTable, "plant_tags", ""},
		{reflector.MissingColumn, "tags", "color"},
		{reflector.NullableMismatch, "tags", "name"},
		{reflector.ExtraTable, "gardens", ""},
	}
	for _, tt := range tests {
		if !has(tt.kind, tt.table, tt.column) {
			t.Errorf("missing %s drift for %s.%s in %+v", tt.kind, tt.table, tt.column, drift)
		}
	}
	if has(reflector.NullableMismatch, "tags", "created_at") {
		t.Error("created_at reported as drift")
	}
}

func TestWriteJSON(t *testing.T) {
	ctx := context.Background()
	conn := openSqlite(t)
	if _, err := conn.Exec(ctx, `CREATE TABLE tags (id TEXT PRIMARY KEY, name TEXT NOT NULL)`); err != nil {
		t.Fatalf("exec: %v", err)
	}
	reflected, err := reflector.NewReflector(reflector.NewSqliteStore(conn)).Reflect(ctx, "main")
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}

	path := filepath.Join(t.TempDir(), "main.json")
	if err := reflector.WriteJSON(reflected, path); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got reflector.ReflectedSchema
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Tables["tags"].Columns) != 2 {
		t.Errorf("tags = %+v", got.Tables["tags"])
	}
}
