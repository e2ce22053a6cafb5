package reflector

import (
	"context"
	"fmt"

	"github.com/jrazmi/growlog/infrastructure/sqldb"
)

// PostgresStore implements the Store interface for PostgreSQL databases
type PostgresStore struct {
	conn sqldb.Querier
}

// NewPostgresStore creates a new PostgreSQL store over an open connection
func NewPostgresStore(conn sqldb.Querier) *PostgresStore {
	return &PostgresStore{conn: conn}
}

// GetSourceType implements the Store interface
func (s *PostgresStore) GetSourceType() string {
	return "postgres"
}

// GetTables implements the Store interface
func (s *PostgresStore) GetTables(ctx context.Context, schemaName string) ([]string, error) {
	query := `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	res, err := s.conn.Query(ctx, query, schemaName)
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		tables = append(tables, asString(row[0]))
	}
	return tables, nil
}

// GetColumns implements the Store interface
func (s *PostgresStore) GetColumns(ctx context.Context, schemaName, tableName string) ([]ColumnInfo, error) {
	query := `
		SELECT
			c.column_name::text,
			c.data_type::text,
			c.is_nullable::text,
			c.column_default::text,
			EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
				  AND tc.table_schema = c.table_schema
				  AND tc.table_name = c.table_name
				  AND kcu.column_name = c.column_name
			)
		FROM information_schema.columns c
		WHERE c.table_schema = $1
		  AND c.table_name = $2
		ORDER BY c.ordinal_position
	`
	res, err := s.conn.Query(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	columns := make([]ColumnInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		col := ColumnInfo{
			Name:       asString(row[0]),
			DBType:     asString(row[1]),
			IsNullable: asString(row[2]) == "YES",
		}
		if row[3] != nil {
			col.HasDefault = true
			col.DefaultValue = asString(row[3])
		}
		col.IsPrimaryKey, _ = row[4].(bool)
		columns = append(columns, col)
	}
	return columns, nil
}

// SqliteStore implements the Store interface for SQLite databases. SQLite
// has a single schema; the schema name is ignored.
type SqliteStore struct {
	conn sqldb.Querier
}

// NewSqliteStore creates a new SQLite store over an open connection
func NewSqliteStore(conn sqldb.Querier) *SqliteStore {
	return &SqliteStore{conn: conn}
}

// GetSourceType implements the Store interface
func (s *SqliteStore) GetSourceType() string {
	return "sqlite"
}

// GetTables implements the Store interface
func (s *SqliteStore) GetTables(ctx context.Context, _ string) ([]string, error) {
	res, err := s.conn.Query(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		tables = append(tables, asString(row[0]))
	}
	return tables, nil
}

// GetColumns implements the Store interface
func (s *SqliteStore) GetColumns(ctx context.Context, _ string, tableName string) ([]ColumnInfo, error) {
	res, err := s.conn.Query(ctx, `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?1)`, tableName)
	if err != nil {
		return nil, err
	}
	columns := make([]ColumnInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		col := ColumnInfo{
			Name:         asString(row[0]),
			DBType:       asString(row[1]),
			IsNullable:   asInt(row[2]) == 0,
			IsPrimaryKey: asInt(row[4]) > 0,
		}
		if row[3] != nil {
			col.HasDefault = true
			col.DefaultValue = asString(row[3])
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	}
	return fmt.Sprint(v)
}

func asInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case bool:
		if t {
			return 1
		}
	}
	return 0
}
