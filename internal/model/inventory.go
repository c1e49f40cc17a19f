package model

import (
	"strings"
	"time"
)

// InventoryItem is a consumable held in stock (paper, ink, binding supplies).
type InventoryItem struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
	Unit      string    `json:"unit"`
	Threshold int       `json:"threshold"`
	LowStock  bool      `json:"low_stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsLowStock reports whether the item is at or below its reorder threshold.
func (i InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.Threshold
}

// IsPaperOption reports whether the item can be picked as an order's paper stock.
func (i InventoryItem) IsPaperOption() bool {
	name := strings.ToLower(i.Name)
	return strings.Contains(strings.ToLower(i.Unit), "sheet") ||
		strings.Contains(name, "paper") ||
		strings.Contains(name, "card") ||
		strings.Contains(name, "vinyl")
}

// StockMovement records one change to an inventory item's quantity.
type StockMovement struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	OrderID   *int64    `json:"order_id,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy *int64    `json:"created_by,omitempty"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// Movement reasons.
const (
	MovementInitial = "initial"
	MovementOrder   = "order"
	MovementManual  = "manual"
	MovementBulk    = "bulk"
	MovementRestock = "restock"
)

// Bulk inventory actions.
const (
	BulkSetThreshold = "threshold"
	BulkDeduct       = "deduct"
)
