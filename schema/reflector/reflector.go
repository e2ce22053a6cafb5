// Package reflector reads the tables and columns of a live database and
// compares them with the grow journal schema.
package reflector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jrazmi/growlog/core/schema"
)

// MigrationsTable is created by the migrator, not declared by the schema.
const MigrationsTable = "schema_migrations"

// Reflector is the repository layer that orchestrates schema reflection
// It uses a Store (dependency injected) to query the database
type Reflector struct {
	store Store
	now   func() time.Time
}

// NewReflector creates a new Reflector with the given store
func NewReflector(store Store) *Reflector {
	return &Reflector{
		store: store,
		now:   time.Now,
	}
}

// Reflect queries the database via the store and returns a complete schema reflection
func (r *Reflector) Reflect(ctx context.Context, schemaName string) (*ReflectedSchema, error) {
	reflected := &ReflectedSchema{
		Source:      r.store.GetSourceType(),
		SchemaName:  schemaName,
		ReflectedAt: r.now().UTC(),
		Tables:      make(map[string]*TableInfo),
	}

	tables, err := r.store.GetTables(ctx, schemaName)
	if err != nil {
		return nil, fmt.Errorf("get tables: %w", err)
	}

	for _, tableName := range tables {
		columns, err := r.store.GetColumns(ctx, schemaName, tableName)
		if err != nil {
			return nil, fmt.Errorf("get columns for %s: %w", tableName, err)
		}
		reflected.Tables[tableName] = &TableInfo{
			TableName: tableName,
			Columns:   columns,
		}
	}

	return reflected, nil
}

// Diff lists what the database lacks, or has extra, compared to s. Link
// tables of many-to-many relations are checked for their two key columns.
// Primary key nullability is not compared; SQLite reports text keys as
// nullable.
func Diff(reflected *ReflectedSchema, s *schema.Schema) []Drift {
	var drift []Drift
	known := map[string]bool{MigrationsTable: true}

	for _, m := range s.Models() {
		known[m.Table] = true
		table, ok := reflected.Tables[m.Table]
		if !ok {
			drift = append(drift, Drift{Kind: MissingTable, Table: m.Table, Detail: "model " + m.Name})
			continue
		}
		pk := m.PrimaryKey()
		for _, f := range m.Fields {
			col, ok := table.Column(f.Column)
			if !ok {
				drift = append(drift, Drift{Kind: MissingColumn, Table: m.Table, Column: f.Column, Detail: "field " + f.Name})
				continue
			}
			if f == pk {
				continue
			}
			if col.IsNullable != f.Nullable {
				drift = append(drift, Drift{
					Kind:   NullableMismatch,
					Table:  m.Table,
					Column: f.Column,
					Detail: fmt.Sprintf("field %s nullable=%t, column nullable=%t", f.Name, f.Nullable, col.IsNullable),
				})
			}
		}
	}

	for _, link := range s.Links() {
		if known[link.Table] {
			continue
		}
		known[link.Table] = true
		table, ok := reflected.Tables[link.Table]
		if !ok {
			drift = append(drift, Drift{Kind: MissingTable, Table: link.Table, Detail: "link table"})
			continue
		}
		for _, name := range []string{link.SourceColumn, link.TargetColumn} {
			if _, ok := table.Column(name); !ok {
				drift = append(drift, Drift{Kind: MissingColumn, Table: link.Table, Column: name})
			}
		}
	}

	for _, name := range sortedTableNames(reflected.Tables) {
		if !known[name] {
			drift = append(drift, Drift{Kind: ExtraTable, Table: name})
		}
	}
	return drift
}

// WriteJSON writes the schema to a JSON file
func WriteJSON(reflected *ReflectedSchema, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(reflected)
}

func sortedTableNames(tables map[string]*TableInfo) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
