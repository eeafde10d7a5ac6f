package orm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/medatechnology/goutil/medaerror"
)

// ErrorContext provides additional context for errors
type ErrorContext struct {
	Operation string                 // The operation that failed (e.g., "SELECT", "INSERT")
	Table     string                 // The table involved (if applicable)
	Query     string                 // The SQL query (if applicable)
	Fields    map[string]interface{} // Additional context fields
}

// ORMError wraps an error with additional context
type ORMError struct {
	Err     error
	Context ErrorContext
}

func (e *ORMError) Error() string {
	msg := e.Err.Error()

	var parts []string
	if e.Context.Operation != "" {
		parts = append(parts, fmt.Sprintf("operation=%s", e.Context.Operation))
	}
	if e.Context.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Context.Table))
	}

	if len(parts) > 0 {
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(parts, ", "))
	}
	return msg
}

func (e *ORMError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with context information
func WrapError(err error, operation, table string) error {
	if err == nil {
		return nil
	}
	return &ORMError{
		Err: err,
		Context: ErrorContext{
			Operation: operation,
			Table:     table,
		},
	}
}

// WrapErrorWithQuery wraps an error with context including the SQL query
func WrapErrorWithQuery(err error, operation, table, query string) error {
	if err == nil {
		return nil
	}
	return &ORMError{
		Err: err,
		Context: ErrorContext{
			Operation: operation,
			Table:     table,
			Query:     query,
		},
	}
}

// WrapErrorWithFields wraps an error with additional field context
func WrapErrorWithFields(err error, operation, table string, fields map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ORMError{
		Err: err,
		Context: ErrorContext{
			Operation: operation,
			Table:     table,
			Fields:    fields,
		},
	}
}

// IsORMError reports whether err or anything it wraps is an ORMError
func IsORMError(err error) bool {
	var ormErr *ORMError
	return errors.As(err, &ormErr)
}

// GetErrorContext extracts the outermost ORMError context
func GetErrorContext(err error) (ErrorContext, bool) {
	var ormErr *ORMError
	if errors.As(err, &ormErr) {
		return ormErr.Context, true
	}
	return ErrorContext{}, false
}

// IsError reports whether err, or any error it wraps, is the MedaError sentinel
// target. Sentinels are matched on their message.
func IsError(err error, target medaerror.MedaError) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case medaerror.MedaError:
		if e.Message == target.Message {
			return true
		}
	case *medaerror.MedaError:
		if e != nil && e.Message == target.Message {
			return true
		}
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return IsError(u.Unwrap(), target)
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if IsError(inner, target) {
				return true
			}
		}
	}
	return false
}

// IsNoRows is shorthand for IsError(err, ErrSQLNoRows)
func IsNoRows(err error) bool {
	return IsError(err, ErrSQLNoRows)
}

// NewError creates a new medaerror with a message and wraps it with ORM context
func NewError(message, operation, table string) error {
	return WrapError(
		medaerror.MedaError{Message: message},
		operation,
		table,
	)
}

// WrapSelectError wraps a SELECT operation error
func WrapSelectError(err error, table string) error {
	return WrapError(err, "SELECT", table)
}

// WrapInsertError wraps an INSERT operation error
func WrapInsertError(err error, table string) error {
	return WrapError(err, "INSERT", table)
}

// WrapConnectionError wraps a connection-related error
func WrapConnectionError(err error) error {
	return WrapError(err, "CONNECT", "")
}

// WrapTransactionError wraps a transaction-related error
func WrapTransactionError(err error, operation string) error {
	return WrapError(err, "TRANSACTION:"+operation, "")
}

// FormatError formats an error for logging with all available context
func FormatError(err error) string {
	if err == nil {
		return "no error"
	}

	var ormErr *ORMError
	if errors.As(err, &ormErr) {
		var parts []string
		parts = append(parts, fmt.Sprintf("Error: %s", ormErr.Err.Error()))

		if ormErr.Context.Operation != "" {
			parts = append(parts, fmt.Sprintf("Operation: %s", ormErr.Context.Operation))
		}
		if ormErr.Context.Table != "" {
			parts = append(parts, fmt.Sprintf("Table: %s", ormErr.Context.Table))
		}
		if ormErr.Context.Query != "" {
			parts = append(parts, fmt.Sprintf("Query: %s", ormErr.Context.Query))
		}
		if len(ormErr.Context.Fields) > 0 {
			parts = append(parts, fmt.Sprintf("Fields: %v", ormErr.Context.Fields))
		}
		return strings.Join(parts, " | ")
	}

	return err.Error()
}

// LogErrorWithContext logs err on logger, adding the ORMError context as fields
func LogErrorWithContext(logger Logger, err error, fields ...Field) {
	if err == nil {
		return
	}
	if logger == nil {
		logger = defaultLogger
	}

	logFields := make([]Field, 0, len(fields)+4)
	logFields = append(logFields, fields...)

	if ctx, ok := GetErrorContext(err); ok {
		if ctx.Operation != "" {
			logFields = append(logFields, String("operation", ctx.Operation))
		}
		if ctx.Table != "" {
			logFields = append(logFields, String("table", ctx.Table))
		}
		if ctx.Query != "" {
			logFields = append(logFields, String("query", ctx.Query))
		}
	}
	logFields = append(logFields, Error(err))

	logger.Error(err.Error(), logFields...)
}
