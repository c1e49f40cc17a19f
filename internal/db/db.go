// Package db opens the shop's SQLite database and owns its schema.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
	"PRAGMA synchronous=NORMAL",
}

// Open opens the database at path. Use ":memory:" for a throwaway database.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: SQLite has a single writer, pragmas are per connection,
	// and each connection to ":memory:" would otherwise be its own database.
	// Callers must not query through conn while holding a transaction.
	conn.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	return conn, nil
}

// Check reports whether the database answers and carries the schema.
func Check(ctx context.Context, conn *sql.DB) error {
	var n int
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('orders', 'inventory_items')`,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("checking database: %w", err)
	}
	if n != 2 {
		return fmt.Errorf("checking database: schema missing")
	}
	return nil
}
