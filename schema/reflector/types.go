package reflector

import (
	"context"
	"time"
)

// ReflectedSchema represents the complete schema reflection for a single database schema
type ReflectedSchema struct {
	Source      string                `json:"source"`       // Database type (e.g., "postgres")
	SchemaName  string                `json:"schema_name"`  // Schema name (e.g., "public")
	ReflectedAt time.Time             `json:"reflected_at"` // Timestamp of reflection
	Tables      map[string]*TableInfo `json:"tables"`       // Map of table_name -> TableInfo
}

// TableInfo represents a single table's metadata
type TableInfo struct {
	TableName string       `json:"table_name"`
	Columns   []ColumnInfo `json:"columns"`
}

// Column returns the named column.
func (t *TableInfo) Column(name string) (ColumnInfo, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnInfo{}, false
}

// ColumnInfo represents a single column's metadata
type ColumnInfo struct {
	Name         string `json:"name"`
	DBType       string `json:"db_type"`
	IsNullable   bool   `json:"is_nullable"`
	IsPrimaryKey bool   `json:"is_primary_key"`
	DefaultValue string `json:"default_value,omitempty"`
	HasDefault   bool   `json:"has_default"`
}

// Store is the interface that database stores must implement for reflection
// This is the "store" layer - it knows how to query the database
type Store interface {
	// GetTables returns all table names in the schema
	GetTables(ctx context.Context, schemaName string) ([]string, error)

	// GetColumns returns column metadata for a table
	GetColumns(ctx context.Context, schemaName, tableName string) ([]ColumnInfo, error)

	// GetSourceType returns the database type (e.g., "postgres", "sqlite")
	GetSourceType() string
}

// DriftKind classifies a difference between a database and the schema.
type DriftKind string

const (
	MissingTable     DriftKind = "missing_table"
	MissingColumn    DriftKind = "missing_column"
	NullableMismatch DriftKind = "nullable_mismatch"
	ExtraTable       DriftKind = "extra_table"
)

// Drift is one difference found by Diff.
type Drift struct {
	Kind   DriftKind `json:"kind"`
	Table  string    `json:"table"`
	Column string    `json:"column,omitempty"`
	Detail string    `json:"detail,omitempty"`
}
