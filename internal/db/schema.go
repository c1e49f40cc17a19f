package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL COLLATE NOCASE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'customer' CHECK (role IN ('admin', 'customer')),
    avatar_url    TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);

CREATE TABLE IF NOT EXISTS inventory_items (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    sku        TEXT NOT NULL,
    quantity   INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    unit       TEXT NOT NULL DEFAULT 'sheets',
    threshold  INTEGER NOT NULL DEFAULT 0 CHECK (threshold >= 0),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS orders (
    id                INTEGER PRIMARY KEY,
    service_id        TEXT NOT NULL,
    service_name      TEXT NOT NULL,
    order_date        TEXT NOT NULL,
    status            TEXT NOT NULL DEFAULT 'Submitted'
                      CHECK (status IN ('Submitted', 'Printing', 'Quality Check', 'Ready for Pickup', 'Completed')),
    quantity          INTEGER NOT NULL CHECK (quantity > 0),
    paper_type        TEXT NOT NULL,
    print_color       TEXT NOT NULL CHECK (print_color IN ('Color', 'B&W')),
    print_sides       TEXT NOT NULL CHECK (print_sides IN ('Single-Sided', 'Double-Sided')),
    orientation       TEXT NOT NULL CHECK (orientation IN ('Portrait', 'Landscape')),
    notes             TEXT NOT NULL DEFAULT '',
    total_price       REAL NOT NULL,
    file_name         TEXT NOT NULL,
    customer_name     TEXT NOT NULL,
    customer_email    TEXT NOT NULL,
    customer_id       INTEGER REFERENCES users(id),
    ship_address      TEXT NOT NULL DEFAULT '',
    ship_city         TEXT NOT NULL DEFAULT '',
    ship_zip          TEXT NOT NULL DEFAULT '',
    stock_deducted_at DATETIME,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_orders_customer_email ON orders(customer_email COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

CREATE TABLE IF NOT EXISTS order_artwork (
    order_id     INTEGER PRIMARY KEY REFERENCES orders(id) ON DELETE CASCADE,
    storage_key  TEXT NOT NULL,
    data         BLOB NOT NULL,
    mime         TEXT NOT NULL,
    preview      BLOB,
    preview_mime TEXT,
    uploaded_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS stock_movements (
    id         INTEGER PRIMARY KEY,
    item_id    INTEGER NOT NULL REFERENCES inventory_items(id) ON DELETE CASCADE,
    delta      INTEGER NOT NULL,
    reason     TEXT NOT NULL CHECK (reason IN ('initial', 'order', 'manual', 'bulk', 'restock')),
    order_id   INTEGER REFERENCES orders(id) ON DELETE SET NULL,
    notes      TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by INTEGER REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_stock_movements_item ON stock_movements(item_id);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
