package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/tiskarna/internal/model"
)

// ReplaceOrdersAndInventory swaps the shop's orders and stock for the given
// records in one transaction. IDs are kept so order references survive.
// Stock history and artwork of the replaced records are dropped.
func ReplaceOrdersAndInventory(ctx context.Context, db *sql.DB, orders []model.Order, items []model.InventoryItem) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM stock_movements`,
		`DELETE FROM order_artwork`,
		`DELETE FROM orders`,
		`DELETE FROM inventory_items`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing data: %w", err)
		}
	}

	for _, item := range items {
		sku := item.SKU
		if sku == "" {
			sku = DefaultSKU(item.Name)
		}
		unit := item.Unit
		if unit == "" {
			unit = "sheets"
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO inventory_items (id, name, sku, quantity, unit, threshold) VALUES (?, ?, ?, ?, ?, ?)`,
			autoID(item.ID), item.Name, sku, item.Quantity, unit, item.Threshold,
		); err != nil {
			return fmt.Errorf("importing inventory item %q: %w", item.Name, err)
		}
	}

	for _, o := range orders {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, service_id, service_name, order_date, status, quantity, paper_type,
			                     print_color, print_sides, orientation, notes, total_price, file_name,
			                     customer_name, customer_email, customer_id, ship_address, ship_city, ship_zip,
			                     stock_deducted_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			         (SELECT id FROM users WHERE id = ?), ?, ?, ?, ?)`,
			autoID(o.ID), o.ServiceID, o.ServiceName, o.Date, o.Status, o.Quantity, o.PaperType,
			o.PrintColor, o.PrintSides, o.Orientation, o.Notes, o.TotalPrice, o.FileName,
			o.CustomerName, model.NormalizeEmail(o.CustomerEmail), o.CustomerID,
			o.Shipping.Address, o.Shipping.City, o.Shipping.ZipCode, o.StockDeductedAt,
		); err != nil {
			return fmt.Errorf("importing order %d: %w", o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

// autoID lets SQLite assign a row ID for records without one.
func autoID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}
