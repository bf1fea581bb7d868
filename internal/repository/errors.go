// Package repository holds the data access layer.  Repositories wrap a
// *sql.DB; methods ending in Tx run inside a transaction owned by the
// caller, who is responsible for commit or rollback.
package repository

import (
	"errors"
	"strings"
	"time"
)

// ErrForbidden is returned when the caller acts on a resource that belongs
// to someone else.  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write loses against concurrent state,
// e.g. a seat that was booked between read and update.  Handlers translate
// it into 409.
var ErrConflict = errors.New("conflict")

// dbTimeLayout is understood by MySQL DATETIME columns and sorts correctly
// as text in SQLite.
const dbTimeLayout = "2006-01-02 15:04:05"

func dbTime(t time.Time) string { return t.UTC().Format(dbTimeLayout) }

// isDuplicate recognises unique violations from both drivers.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "1062") || strings.Contains(msg, "UNIQUE constraint failed")
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
