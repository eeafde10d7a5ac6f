package rqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/medatechnology/goutil/medaerror"
	orm "github.com/medatechnology/simpleshop"
)

// rqlite reports SQLite failures as text only, so violations are classified by
// the engine's messages.
const (
	ErrMsgUniqueConstraint     = "UNIQUE constraint failed"
	ErrMsgPrimaryKeyConstraint = "PRIMARY KEY constraint failed"
	ErrMsgNotNullConstraint    = "NOT NULL constraint failed"
	ErrMsgForeignKeyConstraint = "FOREIGN KEY constraint failed"
	ErrMsgCheckConstraint      = "CHECK constraint failed"
	ErrMsgDatabaseLocked       = "database is locked"
	ErrMsgNoSuchTable          = "no such table"
	ErrMsgNotLeader            = "not leader"
	ErrMsgLeaderNotFound       = "leader not found"
)

var (
	ErrRQLiteInvalidURL       medaerror.MedaError = medaerror.MedaError{Message: "invalid RQLite URL"}
	ErrRQLiteInvalidConfig    medaerror.MedaError = medaerror.MedaError{Message: "invalid RQLite configuration"}
	ErrRQLiteConnectionFailed medaerror.MedaError = medaerror.MedaError{Message: "failed to connect to RQLite server"}
	ErrRQLiteTxNoResults      medaerror.MedaError = medaerror.MedaError{Message: "RQLite returned fewer results than statements sent"}
)

// RQLiteError wraps RQLite-specific errors with additional context
type RQLiteError struct {
	Operation string // SELECT, INSERT, EXEC, COMMIT
	Table     string
	Query     string
	Message   string
	Err       error
}

func (e *RQLiteError) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("operation=%s", e.Operation))
	}
	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Table))
	}
	if len(parts) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s [%s]", e.Message, strings.Join(parts, ", "))
}

func (e *RQLiteError) Unwrap() error {
	return e.Err
}

// WrapRQLiteError wraps an error with RQLite-specific context
func WrapRQLiteError(err error, operation, table, query string) error {
	if err == nil {
		return nil
	}
	return &RQLiteError{
		Operation: operation,
		Table:     table,
		Query:     query,
		Message:   err.Error(),
		Err:       err,
	}
}

// IsUniqueViolation reports UNIQUE and PRIMARY KEY violations
func IsUniqueViolation(err error) bool {
	return containsErrorMessage(err, ErrMsgUniqueConstraint) ||
		containsErrorMessage(err, ErrMsgPrimaryKeyConstraint)
}

func IsNotNullViolation(err error) bool {
	return containsErrorMessage(err, ErrMsgNotNullConstraint)
}

func IsForeignKeyViolation(err error) bool {
	return containsErrorMessage(err, ErrMsgForeignKeyConstraint)
}

func IsCheckViolation(err error) bool {
	return containsErrorMessage(err, ErrMsgCheckConstraint)
}

func IsTableNotFound(err error) bool {
	return containsErrorMessage(err, ErrMsgNoSuchTable)
}

// IsConnectionError checks if the error is related to reaching the cluster
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if orm.IsError(err, ErrRQLiteConnectionFailed) {
		return true
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "i/o timeout") ||
		strings.Contains(errMsg, "tried all peers")
}

// IsRetryable checks if the error is transient: lock contention, an election
// in progress or an unreachable node.
func IsRetryable(err error) bool {
	return containsErrorMessage(err, ErrMsgDatabaseLocked) ||
		containsErrorMessage(err, ErrMsgNotLeader) ||
		containsErrorMessage(err, ErrMsgLeaderNotFound) ||
		IsConnectionError(err)
}

func containsErrorMessage(err error, msg string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), strings.ToLower(msg))
}

// FormatRQLiteError formats an RQLite error for logging or display
func FormatRQLiteError(err error) string {
	if err == nil {
		return "no error"
	}
	var rqErr *RQLiteError
	if !errors.As(err, &rqErr) {
		return err.Error()
	}

	parts := []string{fmt.Sprintf("Message: %s", rqErr.Message)}
	if rqErr.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation: %s", rqErr.Operation))
	}
	if rqErr.Table != "" {
		parts = append(parts, fmt.Sprintf("Table: %s", rqErr.Table))
	}
	if rqErr.Query != "" {
		parts = append(parts, fmt.Sprintf("Query: %s", rqErr.Query))
	}
	return strings.Join(parts, " | ")
}
