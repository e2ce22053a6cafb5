package sqlitedb

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/infrastructure/sqldb"
)

// ErrNoSuchTable reports a schema that was not migrated.
var ErrNoSuchTable = errors.New("no such table")

// uniqueDetail pulls "users.email, users.x" out of the constraint message.
var uniqueDetail = regexp.MustCompile(`UNIQUE constraint failed: ([\w., ]+)`)

// HandleSqliteError converts sqlite errors on model m (nil when unknown)
// into the repositories error taxonomy.
func HandleSqliteError(m *schema.Model, err error) error {
	if err == nil {
		return nil
	}
	modelName := ""
	if m != nil {
		modelName = m.Name
	}

	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		msg := sqlErr.Error()
		code := sqlErr.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(msg, "UNIQUE constraint failed"):
			var cols []string
			if match := uniqueDetail.FindStringSubmatch(msg); match != nil {
				for _, c := range strings.Split(match[1], ",") {
					c = strings.TrimSpace(c)
					if i := strings.LastIndexByte(c, '.'); i >= 0 {
						c = c[i+1:]
					}
					cols = append(cols, c)
				}
			}
			if m != nil {
				if fields := sqldb.FieldsOf(m, cols); len(fields) == len(cols) {
					cols = fields
				}
			}
			return repositories.UniqueViolation(modelName, cols)
		case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
			code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(msg, "FOREIGN KEY constraint failed"):
			// sqlite does not name the violated constraint.
			return repositories.ForeignKeyViolation(modelName, "")
		}
		if strings.Contains(msg, "no such table") {
			return &repositories.EngineError{Err: errors.Join(ErrNoSuchTable, err)}
		}
		return &repositories.UnknownRequestError{Err: err}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return repositories.ErrNotFound
	}
	if errors.Is(err, sql.ErrTxDone) {
		return repositories.TransactionError(repositories.ErrTransactionClosed, err.Error())
	}
	if errors.Is(err, sql.ErrConnDone) {
		return &repositories.EngineError{Err: err}
	}
	return err
}

// MapError implements sqldb.Dialect.
func (Dialect) MapError(m *schema.Model, err error) error {
	return HandleSqliteError(m, err)
}
