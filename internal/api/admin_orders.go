package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/tiskarna/internal/catalog"
	"github.com/erazemk/tiskarna/internal/events"
	"github.com/erazemk/tiskarna/internal/metrics"
	"github.com/erazemk/tiskarna/internal/model"
	"github.com/erazemk/tiskarna/internal/store"
)

// AdminOrdersHandler handles back-office order management.
type AdminOrdersHandler struct {
	DB     *sql.DB
	Events events.Publisher
}

type updateOrderRequest struct {
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	PaperType string `json:"paper_type" validate:"required"`
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Dashboard handles GET /api/admin/dashboard.
func (h *AdminOrdersHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := store.GetDashboard(r.Context(), h.DB)
	if err != nil {
		slog.Error("computing dashboard", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// List handles GET /api/admin/orders.
func (h *AdminOrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.OrderFilter{
		Status:        q.Get("status"),
		From:          q.Get("from"),
		To:            q.Get("to"),
		CustomerEmail: q.Get("email"),
		SortBy:        q.Get("sort"),
		Descending:    q.Get("dir") == "desc",
	}

	if f.Status != "" && !model.ValidStatus(f.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			jsonError(w, http.StatusBadRequest, "dates must be in YYYY-MM-DD format")
			return
		}
	}
	if f.SortBy != "" && !store.ValidOrderSort(f.SortBy) {
		jsonError(w, http.StatusBadRequest, "invalid sort field")
		return
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}

	orders, err := store.ListOrders(r.Context(), h.DB, f)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	jsonResponse(w, http.StatusOK, orders)
}

// Update handles PUT /api/admin/orders/{id}. Changing the quantity or paper
// reprices the order with its original print options.
func (h *AdminOrdersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req updateOrderRequest
	if !bind(w, r, &req) {
		return
	}

	order, err := store.GetOrder(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	if order == nil {
		jsonError(w, http.StatusNotFound, "order not found")
		return
	}

	service, ok := catalog.Get(order.ServiceID)
	if !ok {
		jsonError(w, http.StatusConflict, "service is no longer offered")
		return
	}

	q := quoteFor(service, req.Quantity, req.PaperType, order.PrintColor, order.PrintSides)
	if err := store.UpdateOrderDetails(r.Context(), h.DB, id, req.Quantity, req.PaperType, q.Amount()); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update order")
		return
	}

	updated, err := store.GetOrder(r.Context(), h.DB, id)
	if err != nil || updated == nil {
		jsonError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	slog.Info("order edited", "order", id, "quantity", req.Quantity, "paper_type", req.PaperType,
		"total", updated.TotalPrice, "user", GetClaims(r.Context()).Email)
	jsonResponse(w, http.StatusOK, orderResponse{Order: updated, Quote: newQuoteResponse(service.ID, req.Quantity, q)})
}

// SetStatus handles PUT /api/admin/orders/{id}/status. A stock shortfall
// does not block the change; the response carries a warning instead.
func (h *AdminOrdersHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req setStatusRequest
	if !bind(w, r, &req) {
		return
	}

	t, err := store.TransitionOrder(r.Context(), h.DB, id, req.Status, userID(r.Context()))
	if errors.Is(err, store.ErrInvalidStatus) {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("changing order status", "order", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update status")
		return
	}
	if t == nil {
		jsonError(w, http.StatusNotFound, "order not found")
		return
	}

	metrics.OrderTransitions.WithLabelValues(t.To).Inc()
	publish(r.Context(), h.Events, events.OrderEvent{
		Type:     events.TypeOrderStatusChanged,
		OrderID:  id,
		From:     t.From,
		To:       t.To,
		Quantity: t.Order.Quantity,
		Warning:  t.Warning,
	})

	if d := t.Deduction; d != nil {
		metrics.StockDeducted.WithLabelValues(d.ItemName).Add(float64(d.Deducted))
		if d.Insufficient {
			metrics.StockShortfalls.Inc()
			slog.Warn("insufficient stock", "order", id, "item", d.ItemName,
				"required", d.Required, "available", d.Available)
		}
		h.checkLowStock(r, d.ItemID, id)
	}

	slog.Info("order status changed", "order", id, "from", t.From, "to", t.To)
	jsonResponse(w, http.StatusOK, t)
}

// checkLowStock announces an item that a deduction left at or below its threshold.
func (h *AdminOrdersHandler) checkLowStock(r *http.Request, itemID, orderID int64) {
	item, err := store.GetInventoryItem(r.Context(), h.DB, itemID)
	if err != nil || item == nil || !item.LowStock {
		return
	}
	publish(r.Context(), h.Events, events.OrderEvent{
		Type:     events.TypeStockLow,
		OrderID:  orderID,
		ItemID:   item.ID,
		ItemName: item.Name,
		Quantity: item.Quantity,
	})
}
