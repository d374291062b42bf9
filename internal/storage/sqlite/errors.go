package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates the requested resource was not found in the database.
var ErrNotFound = errors.New("not found")

// isBusy reports whether err is sqlite's file-lock contention error
// (SQLITE_BUSY, surfaced by the driver as "database is locked").
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// wrapDBError wraps a database error with operation context. It converts
// sql.ErrNoRows to ErrNotFound for consistent error handling.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
