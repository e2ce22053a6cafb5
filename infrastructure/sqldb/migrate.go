package sqldb

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Migration is one applied or pending migration file.
type Migration struct {
	Version  string
	Checksum string
	Applied  bool
}

// Migrator applies the .sql files of one directory in name order. Applied
// versions are tracked with their checksum in schema_migrations; a file
// edited after being applied stops the run. Forward only.
type Migrator struct {
	Conn    Conn
	Dialect Dialect
	FS      fs.FS
	Dir     string
	Log     *logger.Logger
}

// Migrate applies every pending migration.
func (mg Migrator) Migrate(ctx context.Context) ([]Migration, error) {
	if mg.Log == nil {
		mg.Log = logger.NewDiscard()
	}
	if err := mg.Conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("status check database: %w", err)
	}
	if err := mg.createMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}
	files, err := mg.files()
	if err != nil {
		return nil, fmt.Errorf("get migration files: %w", err)
	}

	out := make([]Migration, 0, len(files))
	for _, file := range files {
		m, err := mg.apply(ctx, file)
		if err != nil {
			return out, fmt.Errorf("apply migration %s: %w", file, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (mg Migrator) createMigrationsTable(ctx context.Context) error {
	_, err := mg.Conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		checksum VARCHAR(64) NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (mg Migrator) files() ([]string, error) {
	var files []string
	err := fs.WalkDir(mg.FS, mg.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".sql") {
			files = append(files, path.Base(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (mg Migrator) apply(ctx context.Context, version string) (Migration, error) {
	content, err := fs.ReadFile(mg.FS, path.Join(mg.Dir, version))
	if err != nil {
		return Migration{}, fmt.Errorf("read migration file: %w", err)
	}
	m := Migration{Version: version, Checksum: fmt.Sprintf("%x", sha256.Sum256(content))}

	p1, p2 := mg.Dialect.Placeholder(1), mg.Dialect.Placeholder(2)
	res, err := mg.Conn.Query(ctx, "SELECT checksum FROM schema_migrations WHERE version = "+p1, version)
	if err != nil {
		return m, fmt.Errorf("read applied migrations: %w", err)
	}
	if len(res.Rows) > 0 {
		existing := fmt.Sprint(rawValue(res.Rows[0][0]))
		if existing != m.Checksum {
			return m, fmt.Errorf("checksum mismatch: migration %s was modified after being applied (expected %s, got %s)", version, existing, m.Checksum)
		}
		m.Applied = true
		mg.Log.InfoContext(ctx, "migration already applied", "version", version)
		return m, nil
	}

	tx, err := mg.Conn.Begin(ctx, repositories.TxOptions{})
	if err != nil {
		return m, fmt.Errorf("begin transaction: %w", err)
	}
	for _, stmt := range splitStatements(string(content)) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return m, fmt.Errorf("execute migration: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version, checksum) VALUES ("+p1+", "+p2+")", version, m.Checksum); err != nil {
		_ = tx.Rollback(ctx)
		return m, fmt.Errorf("record migration: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return m, fmt.Errorf("commit transaction: %w", err)
	}
	m.Applied = true
	mg.Log.InfoContext(ctx, "migration applied", "version", version, "checksum", m.Checksum[:8])
	return m, nil
}

// splitStatements splits a migration file on semicolons that end a line.
// Migration files keep one statement per terminated block.
func splitStatements(content string) []string {
	var (
		out []string
		cur strings.Builder
	)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			if stmt := strings.TrimSpace(cur.String()); stmt != ";" {
				out = append(out, stmt)
			}
			cur.Reset()
		}
	}
	if stmt := strings.TrimSpace(cur.String()); stmt != "" {
		out = append(out, stmt)
	}
	return out
}
