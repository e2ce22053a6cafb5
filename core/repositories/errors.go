package repositories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jrazmi/growlog/core/scaffolding/fop"
)

// Set of error values returned by delegates and stores.
var (
	ErrNotFound              = errors.New("record not found")
	ErrUniqueViolation       = errors.New("unique constraint failed")
	ErrForeignKeyViolation   = errors.New("foreign key constraint failed")
	ErrValidation            = fop.ErrValidation
	ErrOperationNotSupported = errors.New("operation not supported")
	ErrTransactionClosed     = errors.New("transaction already closed")
	ErrTransactionTimeout    = errors.New("transaction timed out")
	ErrDisconnected          = errors.New("client is disconnected")
)

// Error codes carried by KnownRequestError.
const (
	CodeUniqueViolation     = "P2002"
	CodeForeignKeyViolation = "P2003"
	CodeRecordNotFound      = "P2025"
	CodeTransaction         = "P2028"
)

// ValidationError reports a malformed query. It is raised before any I/O.
type ValidationError = fop.ValidationError

// KnownRequestError is a request failure the store identified, such as a
// constraint violation.
type KnownRequestError struct {
	Code    string
	Message string
	Meta    map[string]any
	kind    error
}

func (e *KnownRequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the matching sentinel to errors.Is.
func (e *KnownRequestError) Unwrap() error {
	return e.kind
}

// UnknownRequestError is a request failure without a known code.
type UnknownRequestError struct {
	Err error
}

func (e *UnknownRequestError) Error() string { return "unknown request error: " + e.Err.Error() }
func (e *UnknownRequestError) Unwrap() error { return e.Err }

// EngineError is a fatal failure of the underlying store; the client should
// be reconnected.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string { return "engine error: " + e.Err.Error() }
func (e *EngineError) Unwrap() error { return e.Err }

// InitializationError reports a client that could not start, from bad
// configuration or an unreachable store.
type InitializationError struct {
	Code string
	Err  error
}

func (e *InitializationError) Error() string {
	if e.Code == "" {
		return "initialization failed: " + e.Err.Error()
	}
	return fmt.Sprintf("initialization failed (%s): %s", e.Code, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// UniqueViolation reports a row conflicting on target.
func UniqueViolation(model string, target []string) error {
	return &KnownRequestError{
		Code:    CodeUniqueViolation,
		Message: fmt.Sprintf("unique constraint failed on %s(%s)", model, strings.Join(target, ", ")),
		Meta:    map[string]any{"modelName": model, "target": target},
		kind:    ErrUniqueViolation,
	}
}

// ForeignKeyViolation reports a reference to a missing row, or a delete
// blocked by dependents. field is empty when the store does not name it.
func ForeignKeyViolation(model, field string) error {
	target := model
	meta := map[string]any{"modelName": model}
	if field != "" {
		target += "." + field
		meta["field_name"] = field
	}
	return &KnownRequestError{
		Code:    CodeForeignKeyViolation,
		Message: "foreign key constraint failed on " + target,
		Meta:    meta,
		kind:    ErrForeignKeyViolation,
	}
}

// RecordNotFound reports an operation that required a row that does not exist.
func RecordNotFound(model, operation string) error {
	return &KnownRequestError{
		Code:    CodeRecordNotFound,
		Message: fmt.Sprintf("no %s record found for %s", model, operation),
		Meta:    map[string]any{"modelName": model, "cause": "record not found"},
		kind:    ErrNotFound,
	}
}

// TransactionError reports a misuse or expiry of an interactive transaction.
func TransactionError(kind error, detail string) error {
	return &KnownRequestError{
		Code:    CodeTransaction,
		Message: "transaction API error: " + detail,
		Meta:    map[string]any{"error": detail},
		kind:    kind,
	}
}

// IsKnown reports whether err carries a known request error code, and which.
func IsKnown(err error) (string, bool) {
	var known *KnownRequestError
	if errors.As(err, &known) {
		return known.Code, true
	}
	return "", false
}
