package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gosimple/slug"

	"github.com/erazemk/tiskarna/internal/model"
)

const inventoryColumns = `id, name, sku, quantity, unit, threshold, created_at, updated_at`

func scanInventoryItem(s scanner, item *model.InventoryItem) error {
	if err := s.Scan(&item.ID, &item.Name, &item.SKU, &item.Quantity, &item.Unit, &item.Threshold,
		&item.CreatedAt, &item.UpdatedAt); err != nil {
		return err
	}
	item.LowStock = item.IsLowStock()
	return nil
}

// DefaultSKU derives a stock keeping unit code from an item name.
func DefaultSKU(name string) string {
	return strings.ToUpper(slug.Make(name))
}

// CreateInventoryItem adds a new stock item. An empty SKU is derived from
// the name. A non-zero starting quantity is recorded as an initial movement.
func CreateInventoryItem(ctx context.Context, db *sql.DB, name, sku, unit string, quantity, threshold int, userID *int64) (*model.InventoryItem, error) {
	if name == "" {
		return nil, fmt.Errorf("name required")
	}
	if quantity < 0 || threshold < 0 {
		return nil, fmt.Errorf("quantity and threshold must not be negative")
	}
	if sku == "" {
		sku = DefaultSKU(name)
	}
	if unit == "" {
		unit = "sheets"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getInventoryItemByName(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrItemExists
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_items (name, sku, quantity, unit, threshold) VALUES (?, ?, ?, ?, ?)`,
		name, sku, quantity, unit, threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("creating inventory item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting inventory item id: %w", err)
	}

	if quantity > 0 {
		if err := recordMovement(ctx, tx, id, quantity, model.MovementInitial, nil, "", userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing inventory item: %w", err)
	}

	return GetInventoryItem(ctx, db, id)
}

// GetInventoryItem returns an inventory item by ID.
func GetInventoryItem(ctx context.Context, db *sql.DB, id int64) (*model.InventoryItem, error) {
	return getInventoryItem(ctx, db, id)
}

func getInventoryItem(ctx context.Context, q querier, id int64) (*model.InventoryItem, error) {
	item := &model.InventoryItem{}
	err := scanInventoryItem(q.QueryRowContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory_items WHERE id = ?`, id,
	), item)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting inventory item: %w", err)
	}
	return item, nil
}

// GetInventoryItemByName returns the inventory item with exactly this name.
func GetInventoryItemByName(ctx context.Context, db *sql.DB, name string) (*model.InventoryItem, error) {
	return getInventoryItemByName(ctx, db, name)
}

func getInventoryItemByName(ctx context.Context, q querier, name string) (*model.InventoryItem, error) {
	item := &model.InventoryItem{}
	err := scanInventoryItem(q.QueryRowContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory_items WHERE name = ?`, name,
	), item)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting inventory item by name: %w", err)
	}
	return item, nil
}

// ListInventory returns inventory items ordered by name. With lowOnly set,
// only items at or below their reorder threshold are returned.
func ListInventory(ctx context.Context, db *sql.DB, lowOnly bool) ([]model.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items`
	if lowOnly {
		query += ` WHERE quantity <= threshold`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		var item model.InventoryItem
		if err := scanInventoryItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scanning inventory item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListPaperOptions returns the inventory items customers can pick as paper stock.
func ListPaperOptions(ctx context.Context, db *sql.DB) ([]model.InventoryItem, error) {
	items, err := ListInventory(ctx, db, false)
	if err != nil {
		return nil, err
	}

	var papers []model.InventoryItem
	for _, item := range items {
		if item.IsPaperOption() {
			papers = append(papers, item)
		}
	}
	return papers, nil
}

// UpdateInventoryItem updates an item's descriptive fields and threshold.
// Quantity changes go through DeductInventory and RestockInventory.
func UpdateInventoryItem(ctx context.Context, db *sql.DB, id int64, name, sku, unit string, threshold int) error {
	if threshold < 0 {
		return fmt.Errorf("threshold must not be negative")
	}
	_, err := db.ExecContext(ctx,
		`UPDATE inventory_items SET name = ?, sku = ?, unit = ?, threshold = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, sku, unit, threshold, id,
	)
	if err != nil {
		return fmt.Errorf("updating inventory item: %w", err)
	}
	return nil
}

// DeleteInventoryItem removes an item and its movement history.
func DeleteInventoryItem(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting inventory item: %w", err)
	}
	return nil
}

// DeductInventory removes amount units from an item, flooring the quantity at
// zero. It returns the updated item, or nil if the item does not exist.
func DeductInventory(ctx context.Context, db *sql.DB, id int64, amount int, notes string, userID *int64) (*model.InventoryItem, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getInventoryItem(ctx, tx, id)
	if err != nil || item == nil {
		return nil, err
	}

	if _, err := deduct(ctx, tx, item, amount, model.MovementManual, nil, notes, userID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing deduction: %w", err)
	}
	return GetInventoryItem(ctx, db, id)
}

// RestockInventory adds amount units to an item. It returns the updated item,
// or nil if the item does not exist.
func RestockInventory(ctx context.Context, db *sql.DB, id int64, amount int, notes string, userID *int64) (*model.InventoryItem, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getInventoryItem(ctx, tx, id)
	if err != nil || item == nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE inventory_items SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		amount, id,
	); err != nil {
		return nil, fmt.Errorf("restocking inventory item: %w", err)
	}
	if err := recordMovement(ctx, tx, id, amount, model.MovementRestock, nil, notes, userID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing restock: %w", err)
	}
	return GetInventoryItem(ctx, db, id)
}

// BulkUpdateInventory applies one action to every listed item in a single
// transaction: BulkSetThreshold overwrites the threshold with value,
// BulkDeduct removes value units floored at zero. Unknown IDs are skipped.
func BulkUpdateInventory(ctx context.Context, db *sql.DB, ids []int64, action string, value int, userID *int64) ([]model.InventoryItem, error) {
	switch action {
	case model.BulkSetThreshold:
		if value < 0 {
			return nil, fmt.Errorf("threshold must not be negative")
		}
	case model.BulkDeduct:
		if value <= 0 {
			return nil, fmt.Errorf("deduction must be positive")
		}
	default:
		return nil, fmt.Errorf("unknown bulk action %q", action)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var updated []int64
	for _, id := range ids {
		item, err := getInventoryItem(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			continue
		}

		if action == model.BulkSetThreshold {
			if _, err := tx.ExecContext(ctx,
				`UPDATE inventory_items SET threshold = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
				value, id,
			); err != nil {
				return nil, fmt.Errorf("updating threshold: %w", err)
			}
		} else {
			if _, err := deduct(ctx, tx, item, value, model.MovementBulk, nil, "", userID); err != nil {
				return nil, err
			}
		}
		updated = append(updated, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing bulk update: %w", err)
	}

	items := make([]model.InventoryItem, 0, len(updated))
	for _, id := range updated {
		item, err := GetInventoryItem(ctx, db, id)
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, *item)
		}
	}
	return items, nil
}

// deduct lowers item's quantity by amount, never below zero, and records the
// applied change. It returns the number of units actually removed.
func deduct(ctx context.Context, q querier, item *model.InventoryItem, amount int, reason string, orderID *int64, notes string, userID *int64) (int, error) {
	applied := min(amount, item.Quantity)
	if applied <= 0 {
		return 0, nil
	}

	if _, err := q.ExecContext(ctx,
		`UPDATE inventory_items SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		item.Quantity-applied, item.ID,
	); err != nil {
		return 0, fmt.Errorf("deducting inventory: %w", err)
	}

	if err := recordMovement(ctx, q, item.ID, -applied, reason, orderID, notes, userID); err != nil {
		return 0, err
	}
	return applied, nil
}
