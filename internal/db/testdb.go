package db

import (
	"database/sql"
	"testing"
)

// NewTestDB returns an empty in-memory shop database, closed when tb ends.
func NewTestDB(tb testing.TB) *sql.DB {
	tb.Helper()

	conn, err := Open(":memory:")
	if err != nil {
		tb.Fatalf("opening test database: %v", err)
	}
	tb.Cleanup(func() { conn.Close() })

	if err := EnsureSchema(conn); err != nil {
		tb.Fatalf("applying schema: %v", err)
	}
	return conn
}
