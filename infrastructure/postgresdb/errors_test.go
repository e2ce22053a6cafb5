package postgresdb_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/infrastructure/postgresdb"
)

func TestHandlePgError(t *testing.T) {
	accounts, _ := schema.Default.Model(schema.Account)

	err := postgresdb.HandlePgError(accounts, &pgconn.PgError{
		Code:   "23505",
		Detail: "Key (provider, provider_account_id)=(github, 42) already exists.",
	})
	if !errors.Is(err, repositories.ErrUniqueViolation) {
		t.Fatalf("got %v, want ErrUniqueViolation", err)
	}
	var known *repositories.KnownRequestError
	if !errors.As(err, &known) {
		t.Fatalf("%v is not a known request error", err)
	}
	if want := []string{"provider", "providerAccountId"}; !reflect.DeepEqual(known.Meta["target"], want) {
		t.Errorf("target: got %v, want %v", known.Meta["target"], want)
	}

	err = postgresdb.HandlePgError(accounts, &pgconn.PgError{Code: "23503", ConstraintName: "accounts_user_id_fkey"})
	if !errors.Is(err, repositories.ErrForeignKeyViolation) {
		t.Errorf("got %v, want ErrForeignKeyViolation", err)
	}

	err = postgresdb.HandlePgError(nil, &pgconn.PgError{Code: "42P01"})
	var engine *repositories.EngineError
	if !errors.As(err, &engine) || !errors.Is(err, postgresdb.ErrUndefinedTable) {
		t.Errorf("undefined table: got %v", err)
	}

	err = postgresdb.HandlePgError(nil, &pgconn.PgError{Code: "22P02"})
	var unknown *repositories.UnknownRequestError
	if !errors.As(err, &unknown) {
		t.Errorf("other sqlstate: got %T", err)
	}

	if err := postgresdb.HandlePgError(nil, fmt.Errorf("scan: %w", pgx.ErrNoRows)); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("no rows: got %v", err)
	}
	if err := postgresdb.HandlePgError(nil, nil); err != nil {
		t.Errorf("nil error mapped to %v", err)
	}
}
