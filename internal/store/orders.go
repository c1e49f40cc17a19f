package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/tiskarna/internal/model"
)

const orderColumns = `id, service_id, service_name, order_date, status, quantity, paper_type,
	print_color, print_sides, orientation, notes, total_price, file_name,
	customer_name, customer_email, customer_id, ship_address, ship_city, ship_zip,
	stock_deducted_at, created_at, updated_at`

func scanOrder(s scanner, o *model.Order) error {
	return s.Scan(&o.ID, &o.ServiceID, &o.ServiceName, &o.Date, &o.Status, &o.Quantity, &o.PaperType,
		&o.PrintColor, &o.PrintSides, &o.Orientation, &o.Notes, &o.TotalPrice, &o.FileName,
		&o.CustomerName, &o.CustomerEmail, &o.CustomerID, &o.Shipping.Address, &o.Shipping.City, &o.Shipping.ZipCode,
		&o.StockDeductedAt, &o.CreatedAt, &o.UpdatedAt)
}

// CreateOrder stores a newly submitted order. The status is always
// Submitted; an empty date defaults to today.
func CreateOrder(ctx context.Context, db *sql.DB, o model.Order) (*model.Order, error) {
	if o.Date == "" {
		o.Date = time.Now().Format(time.DateOnly)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO orders (service_id, service_name, order_date, status, quantity, paper_type,
		                     print_color, print_sides, orientation, notes, total_price, file_name,
		                     customer_name, customer_email, customer_id, ship_address, ship_city, ship_zip)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ServiceID, o.ServiceName, o.Date, model.StatusSubmitted, o.Quantity, o.PaperType,
		o.PrintColor, o.PrintSides, o.Orientation, o.Notes, o.TotalPrice, o.FileName,
		o.CustomerName, model.NormalizeEmail(o.CustomerEmail), o.CustomerID,
		o.Shipping.Address, o.Shipping.City, o.Shipping.ZipCode,
	)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting order id: %w", err)
	}

	return GetOrder(ctx, db, id)
}

// GetOrder returns an order by ID.
func GetOrder(ctx context.Context, db *sql.DB, id int64) (*model.Order, error) {
	return getOrder(ctx, db, id)
}

func getOrder(ctx context.Context, q querier, id int64) (*model.Order, error) {
	o := &model.Order{}
	err := scanOrder(q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id,
	), o)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	return o, nil
}

// OrderFilter narrows and orders ListOrders results. Zero values mean no
// filter; From and To are inclusive YYYY-MM-DD dates.
type OrderFilter struct {
	Status        string
	From          string
	To            string
	CustomerEmail string
	SortBy        string
	Descending    bool
	Limit         int
}

// orderSortColumns maps accepted sort keys to columns.
var orderSortColumns = map[string]string{
	"id":             "id",
	"date":           "order_date",
	"status":         "status",
	"quantity":       "quantity",
	"total_price":    "total_price",
	"customer_name":  "customer_name",
	"customer_email": "customer_email",
	"service_name":   "service_name",
	"paper_type":     "paper_type",
}

// ValidOrderSort reports whether key can be used as OrderFilter.SortBy.
func ValidOrderSort(key string) bool {
	_, ok := orderSortColumns[key]
	return ok
}

// ListOrders returns orders matching f. Without a sort key the newest
// orders come first.
func ListOrders(ctx context.Context, db *sql.DB, f OrderFilter) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	var args []any

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.From != "" {
		query += ` AND order_date >= ?`
		args = append(args, f.From)
	}
	if f.To != "" {
		query += ` AND order_date <= ?`
		args = append(args, f.To)
	}
	if f.CustomerEmail != "" {
		query += ` AND customer_email = ? COLLATE NOCASE`
		args = append(args, model.NormalizeEmail(f.CustomerEmail))
	}

	if col, ok := orderSortColumns[f.SortBy]; ok {
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		query += ` ORDER BY ` + col + ` ` + dir + `, id ` + dir
	} else {
		query += ` ORDER BY created_at DESC, id DESC`
	}

	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateOrderDetails overwrites the editable parts of an order along with
// its recomputed price.
func UpdateOrderDetails(ctx context.Context, db *sql.DB, id int64, quantity int, paperType string, totalPrice float64) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	_, err := db.ExecContext(ctx,
		`UPDATE orders SET quantity = ?, paper_type = ?, total_price = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		quantity, paperType, totalPrice, id,
	)
	if err != nil {
		return fmt.Errorf("updating order: %w", err)
	}
	return nil
}

// TransitionOrder moves an order to target. Any lifecycle status may be
// reached from any other. Entering Printing deducts the order quantity from
// the inventory item named after the order's paper type, once per order;
// a shortfall floors the stock at zero and sets Transition.Warning. It
// returns nil, nil if the order does not exist.
func TransitionOrder(ctx context.Context, db *sql.DB, orderID int64, target string, userID *int64) (*model.Transition, error) {
	if !model.ValidStatus(target) {
		return nil, ErrInvalidStatus
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := getOrder(ctx, tx, orderID)
	if err != nil || order == nil {
		return nil, err
	}

	t := &model.Transition{From: order.Status, To: target}
	if model.StatusIndex(target) < model.StatusIndex(order.Status) {
		slog.Warn("order moved backwards", "order", order.ID, "from", order.Status, "to", target)
	}

	if target == model.StatusPrinting && order.Status != model.StatusPrinting && order.StockDeductedAt == nil {
		item, err := getInventoryItemByName(ctx, tx, order.PaperType)
		if err != nil {
			return nil, err
		}

		if item == nil {
			slog.Info("no inventory item for paper type, skipping deduction",
				"order", order.ID, "paper_type", order.PaperType)
		} else {
			applied, err := deduct(ctx, tx, item, order.Quantity, model.MovementOrder, &order.ID, "", userID)
			if err != nil {
				return nil, err
			}

			t.Deduction = &model.Deduction{
				ItemID:       item.ID,
				ItemName:     item.Name,
				Required:     order.Quantity,
				Available:    item.Quantity,
				Deducted:     applied,
				Remaining:    item.Quantity - applied,
				Insufficient: item.Quantity < order.Quantity,
			}
			if t.Deduction.Insufficient {
				t.Warning = fmt.Sprintf("insufficient stock for %s: required %d, available %d; stock set to 0",
					item.Name, order.Quantity, item.Quantity)
			}

			if _, err := tx.ExecContext(ctx,
				`UPDATE orders SET stock_deducted_at = CURRENT_TIMESTAMP WHERE id = ?`, order.ID,
			); err != nil {
				return nil, fmt.Errorf("marking stock deducted: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		target, order.ID,
	); err != nil {
		return nil, fmt.Errorf("updating order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing status change: %w", err)
	}

	t.Order, err = GetOrder(ctx, db, orderID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Dashboard summarizes the shop's current workload.
type Dashboard struct {
	PendingOrders  int                   `json:"pending_orders"`
	ActivePrinting int                   `json:"active_printing"`
	TotalRevenue   float64               `json:"total_revenue"`
	TotalOrders    int                   `json:"total_orders"`
	RecentOrders   []model.Order         `json:"recent_orders"`
	LowStock       []model.InventoryItem `json:"low_stock"`
}

// GetDashboard computes the admin dashboard figures.
func GetDashboard(ctx context.Context, db *sql.DB) (*Dashboard, error) {
	d := &Dashboard{}
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(total_price), 0)
		 FROM orders`,
		model.StatusSubmitted, model.StatusPrinting,
	).Scan(&d.TotalOrders, &d.PendingOrders, &d.ActivePrinting, &d.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("computing order totals: %w", err)
	}

	d.RecentOrders, err = ListOrders(ctx, db, OrderFilter{Limit: 5})
	if err != nil {
		return nil, err
	}
	d.LowStock, err = ListInventory(ctx, db, true)
	if err != nil {
		return nil, err
	}

	if d.RecentOrders == nil {
		d.RecentOrders = []model.Order{}
	}
	if d.LowStock == nil {
		d.LowStock = []model.InventoryItem{}
	}
	return d, nil
}
