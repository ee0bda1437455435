package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ConnectionError is returned when a connection cannot be established or
// verified. It is never retried.
type ConnectionError struct {
	Driver string
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s %s: %v", e.Driver, e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// StatementError carries a failed statement and the database diagnostic.
type StatementError struct {
	SQL string
	Err error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement failed: %s", Diagnostic(e.Err))
}

func (e *StatementError) Unwrap() error { return e.Err }

// Diagnostic renders the most useful text a driver error carries: the
// SQLSTATE or server error number, the message, and any detail or hint.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		parts := []string{fmt.Sprintf("%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)}
		if pgErr.Detail != "" {
			parts = append(parts, "detail: "+pgErr.Detail)
		}
		if pgErr.Hint != "" {
			parts = append(parts, "hint: "+pgErr.Hint)
		}
		return strings.Join(parts, "; ")
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fmt.Sprintf("%s (error %d)", myErr.Message, myErr.Number)
	}

	return err.Error()
}
