// Package store implements persistence on top of the SQLite schema in
// package db. Getters return nil, nil when a row does not exist.
package store

import (
	"context"
	"database/sql"
	"errors"
)

var (
	// ErrAccountExists is returned when signing up with an e-mail already on file.
	ErrAccountExists = errors.New("an account with this email already exists")
	// ErrItemExists is returned when creating an inventory item whose name is taken.
	ErrItemExists = errors.New("an inventory item with this name already exists")
	// ErrInvalidStatus is returned for a status outside the order lifecycle.
	ErrInvalidStatus = errors.New("invalid order status")
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
