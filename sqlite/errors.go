package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/medatechnology/goutil/medaerror"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrSQLiteInvalidConfig    medaerror.MedaError = medaerror.MedaError{Message: "invalid SQLite configuration"}
	ErrSQLiteInvalidDSN       medaerror.MedaError = medaerror.MedaError{Message: "invalid SQLite DSN"}
	ErrSQLiteConnectionFailed medaerror.MedaError = medaerror.MedaError{Message: "failed to open SQLite database"}
	ErrSQLiteQueryFailed      medaerror.MedaError = medaerror.MedaError{Message: "SQLite query execution failed"}
)

// SQLiteError wraps an engine error with the operation that produced it
type SQLiteError struct {
	Operation string
	Table     string
	Query     string
	Code      int // extended result code, 0 when unknown
	Err       error
}

func (e *SQLiteError) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("operation=%s", e.Operation))
	}
	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Table))
	}
	if e.Code != 0 {
		parts = append(parts, fmt.Sprintf("code=%d", e.Code))
	}
	if len(parts) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s [%s]", e.Err.Error(), strings.Join(parts, ", "))
}

func (e *SQLiteError) Unwrap() error {
	return e.Err
}

// WrapSQLiteError wraps err with context and the engine result code if present
func WrapSQLiteError(err error, operation, table, query string) error {
	if err == nil {
		return nil
	}
	wrapped := &SQLiteError{
		Operation: operation,
		Table:     table,
		Query:     query,
		Err:       err,
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		wrapped.Code = sqliteErr.Code()
	}
	return wrapped
}

func resultCode(err error) int {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()
	}
	return 0
}

// constraint matches by extended result code, then by message for errors
// that lost their type on the way (for example through fmt.Errorf("%v")).
func constraint(err error, code int, message string) bool {
	if err == nil {
		return false
	}
	if resultCode(err) == code {
		return true
	}
	return strings.Contains(err.Error(), message)
}

// IsUniqueViolation checks if the error is a UNIQUE or PRIMARY KEY violation
func IsUniqueViolation(err error) bool {
	return constraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE constraint failed") ||
		constraint(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, "PRIMARY KEY constraint failed")
}

// IsForeignKeyViolation checks if the error is a foreign key violation
func IsForeignKeyViolation(err error) bool {
	return constraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, "FOREIGN KEY constraint failed")
}

// IsCheckViolation checks if the error is a CHECK constraint violation
func IsCheckViolation(err error) bool {
	return constraint(err, sqlite3.SQLITE_CONSTRAINT_CHECK, "CHECK constraint failed")
}

// IsNotNullViolation checks if the error is a NOT NULL violation
func IsNotNullViolation(err error) bool {
	return constraint(err, sqlite3.SQLITE_CONSTRAINT_NOTNULL, "NOT NULL constraint failed")
}
