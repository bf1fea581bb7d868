// Package testutil provides shared fixtures for package tests: a throwaway
// SQLite database with the production schema and a manual clock.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookmyseat/internal/database"
)

// NewDB opens a fresh SQLite database under t.TempDir() and applies the
// schema.  It is closed when the test ends.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, "sqlite3"))
	return db
}

// InsertUser adds a user with a placeholder password hash and returns its id.
func InsertUser(t *testing.T, db *sql.DB, email, role string) uint64 {
	t.Helper()
	return insert(t, db, "INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)", email, "x", role)
}

// InsertMovie adds a movie with only a name set.
func InsertMovie(t *testing.T, db *sql.DB, name string) uint64 {
	t.Helper()
	return insert(t, db, "INSERT INTO movies (name, cast_list) VALUES (?, '')", name)
}

// InsertTheater adds a theater for movieID showing at showTime.
func InsertTheater(t *testing.T, db *sql.DB, movieID uint64, name string, showTime time.Time) uint64 {
	t.Helper()
	return insert(t, db, "INSERT INTO theaters (name, movie_id, show_time) VALUES (?, ?, ?)",
		name, movieID, showTime.UTC().Format("2006-01-02 15:04:05"))
}

// InsertSeats adds seats A1..An to a theater and returns their ids in order.
func InsertSeats(t *testing.T, db *sql.DB, theaterID uint64, n int) []uint64 {
	t.Helper()
	ids := make([]uint64, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, insert(t, db, "INSERT INTO seats (theater_id, seat_number) VALUES (?, ?)",
			theaterID, fmt.Sprintf("A%d", i)))
	}
	return ids
}

func insert(t *testing.T, db *sql.DB, query string, args ...any) uint64 {
	t.Helper()
	res, err := db.Exec(query, args...)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}
