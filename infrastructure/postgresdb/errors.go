package postgresdb

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/infrastructure/sqldb"
)

// PostgreSQL error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	undefinedTable      = "42P01"
)

// ErrUndefinedTable reports a schema that was not migrated.
var ErrUndefinedTable = errors.New("undefined table")

// keyDetail pulls the column list out of "Key (a, b)=(x, y) already exists."
var keyDetail = regexp.MustCompile(`Key \(([^)]*)\)=`)

// HandlePgError converts PostgreSQL errors on model m (nil when unknown)
// into the repositories error taxonomy.
func HandlePgError(m *schema.Model, err error) error {
	if err == nil {
		return nil
	}
	modelName := ""
	if m != nil {
		modelName = m.Name
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			var cols []string
			if match := keyDetail.FindStringSubmatch(pgErr.Detail); match != nil {
				for _, c := range strings.Split(match[1], ",") {
					cols = append(cols, strings.TrimSpace(c))
				}
			}
			if m != nil {
				if fields := sqldb.FieldsOf(m, cols); len(fields) == len(cols) {
					cols = fields
				}
			}
			if modelName == "" {
				modelName = pgErr.TableName
			}
			return repositories.UniqueViolation(modelName, cols)
		case foreignKeyViolation:
			if modelName == "" {
				modelName = pgErr.TableName
			}
			return repositories.ForeignKeyViolation(modelName, pgErr.ConstraintName)
		case undefinedTable:
			return &repositories.EngineError{Err: errors.Join(ErrUndefinedTable, err)}
		}
		return &repositories.UnknownRequestError{Err: err}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repositories.ErrNotFound
	}
	if errors.Is(err, pgx.ErrTxClosed) {
		return repositories.TransactionError(repositories.ErrTransactionClosed, err.Error())
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return &repositories.EngineError{Err: err}
	}
	return err
}

// MapError implements sqldb.Dialect.
func (Dialect) MapError(m *schema.Model, err error) error {
	return HandlePgError(m, err)
}
