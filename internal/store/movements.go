package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/tiskarna/internal/model"
)

// recordMovement appends an entry to an item's stock history.
func recordMovement(ctx context.Context, q querier, itemID int64, delta int, reason string, orderID *int64, notes string, userID *int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO stock_movements (item_id, delta, reason, order_id, notes, created_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		itemID, delta, reason, orderID, notes, userID,
	)
	if err != nil {
		return fmt.Errorf("recording stock movement: %w", err)
	}
	return nil
}

// ListMovements returns stock history, newest first. An itemID of zero
// returns movements for every item.
func ListMovements(ctx context.Context, db *sql.DB, itemID int64) ([]model.StockMovement, error) {
	query := `SELECT m.id, m.item_id, m.delta, m.reason, m.order_id, m.notes, m.created_at, m.created_by,
	                 i.name AS item_name
	          FROM stock_movements m
	          JOIN inventory_items i ON i.id = m.item_id`
	var args []any
	if itemID > 0 {
		query += ` WHERE m.item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY m.created_at DESC, m.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stock movements: %w", err)
	}
	defer rows.Close()

	var movements []model.StockMovement
	for rows.Next() {
		var m model.StockMovement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Delta, &m.Reason, &m.OrderID, &m.Notes,
			&m.CreatedAt, &m.CreatedBy, &m.ItemName); err != nil {
			return nil, fmt.Errorf("scanning stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
