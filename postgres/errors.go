package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/medatechnology/goutil/medaerror"
)

// PostgreSQL error codes used by the helpers below
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	// Class 23 - Integrity Constraint Violation
	ErrCodeUniqueViolation     = "23505"
	ErrCodeForeignKeyViolation = "23503"
	ErrCodeNotNullViolation    = "23502"
	ErrCodeCheckViolation      = "23514"

	// Class 42 - Syntax Error or Access Rule Violation
	ErrCodeUndefinedTable  = "42P01"
	ErrCodeUndefinedColumn = "42703"
	ErrCodeDuplicateTable  = "42P07"

	// Class 08 - Connection Exception
	ErrCodeConnectionException    = "08000"
	ErrCodeConnectionFailure      = "08006"
	ErrCodeSQLClientCannotConnect = "08001"
	ErrCodeCannotConnectNow       = "57P03"

	// Class 40 - Transaction Rollback
	ErrCodeDeadlockDetected     = "40P01"
	ErrCodeSerializationFailure = "40001"
)

var (
	ErrPostgresInvalidDSN       medaerror.MedaError = medaerror.MedaError{Message: "invalid PostgreSQL DSN connection string"}
	ErrPostgresConnectionFailed medaerror.MedaError = medaerror.MedaError{Message: "failed to connect to PostgreSQL database"}
	ErrPostgresInvalidConfig    medaerror.MedaError = medaerror.MedaError{Message: "invalid PostgreSQL configuration"}
)

// PostgreSQLError wraps PostgreSQL-specific errors with additional context
type PostgreSQLError struct {
	Operation string // The operation that failed (e.g., "INSERT", "SELECT")
	Table     string // The table involved (if applicable)
	Query     string // The SQL query that failed (if applicable)
	Code      string // SQLSTATE
	Message   string
	Detail    string
	Hint      string
	Err       error // Original error
}

func (e *PostgreSQLError) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("operation=%s", e.Operation))
	}
	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Table))
	}
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	msg := e.Message
	if len(parts) > 0 {
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(parts, ", "))
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s - Detail: %s", msg, e.Detail)
	}
	if e.Hint != "" {
		msg = fmt.Sprintf("%s - Hint: %s", msg, e.Hint)
	}
	return msg
}

func (e *PostgreSQLError) Unwrap() error {
	return e.Err
}

// WrapPostgreSQLError wraps err with context, lifting SQLSTATE details from
// either driver (lib/pq or pgx).
func WrapPostgreSQLError(err error, operation, table, query string) error {
	if err == nil {
		return nil
	}

	pgErr := &PostgreSQLError{
		Operation: operation,
		Table:     table,
		Query:     query,
		Message:   err.Error(),
		Err:       err,
	}

	var pqErr *pq.Error
	var pgxErr *pgconn.PgError
	switch {
	case errors.As(err, &pqErr):
		pgErr.Code = string(pqErr.Code)
		pgErr.Message = pqErr.Message
		pgErr.Detail = pqErr.Detail
		pgErr.Hint = pqErr.Hint
	case errors.As(err, &pgxErr):
		pgErr.Code = pgxErr.Code
		pgErr.Message = pgxErr.Message
		pgErr.Detail = pgxErr.Detail
		pgErr.Hint = pgxErr.Hint
	}
	return pgErr
}

// IsUniqueViolation checks if the error is a unique constraint violation
func IsUniqueViolation(err error) bool {
	return hasPostgreSQLErrorCode(err, ErrCodeUniqueViolation)
}

// IsForeignKeyViolation checks if the error is a foreign key constraint violation
func IsForeignKeyViolation(err error) bool {
	return hasPostgreSQLErrorCode(err, ErrCodeForeignKeyViolation)
}

// IsNotNullViolation checks if the error is a NOT NULL constraint violation
func IsNotNullViolation(err error) bool {
	return hasPostgreSQLErrorCode(err, ErrCodeNotNullViolation)
}

// IsCheckViolation checks if the error is a CHECK constraint violation
func IsCheckViolation(err error) bool {
	return hasPostgreSQLErrorCode(err, ErrCodeCheckViolation)
}

// IsUndefinedTable checks if the error is due to a non-existent table
func IsUndefinedTable(err error) bool {
	return hasPostgreSQLErrorCode(err, ErrCodeUndefinedTable)
}

// IsConnectionError checks if the error is related to database connection
func IsConnectionError(err error) bool {
	return hasPostgreSQLErrorCode(err, ErrCodeConnectionException) ||
		hasPostgreSQLErrorCode(err, ErrCodeConnectionFailure) ||
		hasPostgreSQLErrorCode(err, ErrCodeSQLClientCannotConnect) ||
		hasPostgreSQLErrorCode(err, ErrCodeCannotConnectNow)
}

// IsRetryable checks if the error is transient and the operation can be retried
func IsRetryable(err error) bool {
	return hasPostgreSQLErrorCode(err, ErrCodeDeadlockDetected) ||
		hasPostgreSQLErrorCode(err, ErrCodeSerializationFailure) ||
		IsConnectionError(err)
}

func hasPostgreSQLErrorCode(err error, code string) bool {
	return err != nil && GetPostgreSQLErrorCode(err) == code
}

// GetPostgreSQLErrorCode extracts the SQLSTATE from an error, "" if none
func GetPostgreSQLErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *PostgreSQLError
	if errors.As(err, &pgErr) && pgErr.Code != "" {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	return ""
}

// FormatPostgreSQLError formats a PostgreSQL error for logging or display
func FormatPostgreSQLError(err error) string {
	if err == nil {
		return "no error"
	}

	var pgErr *PostgreSQLError
	if !errors.As(err, &pgErr) {
		wrapped := WrapPostgreSQLError(err, "", "", "")
		pgErr = wrapped.(*PostgreSQLError)
	}

	var parts []string
	if pgErr.Message != "" {
		parts = append(parts, fmt.Sprintf("Message: %s", pgErr.Message))
	}
	if pgErr.Code != "" {
		parts = append(parts, fmt.Sprintf("Code: %s", pgErr.Code))
	}
	if pgErr.Detail != "" {
		parts = append(parts, fmt.Sprintf("Detail: %s", pgErr.Detail))
	}
	if pgErr.Hint != "" {
		parts = append(parts, fmt.Sprintf("Hint: %s", pgErr.Hint))
	}
	if len(parts) == 0 {
		return err.Error()
	}
	return strings.Join(parts, " | ")
}
