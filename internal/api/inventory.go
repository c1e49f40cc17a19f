package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/tiskarna/internal/events"
	"github.com/erazemk/tiskarna/internal/metrics"
	"github.com/erazemk/tiskarna/internal/model"
	"github.com/erazemk/tiskarna/internal/store"
)

// InventoryHandler handles back-office stock management.
type InventoryHandler struct {
	DB     *sql.DB
	Events events.Publisher
}

type createInventoryRequest struct {
	Name      string `json:"name" validate:"required"`
	SKU       string `json:"sku"`
	Unit      string `json:"unit"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
	Threshold int    `json:"threshold" validate:"gte=0"`
}

type updateInventoryRequest struct {
	Name      string `json:"name" validate:"required"`
	SKU       string `json:"sku"`
	Unit      string `json:"unit"`
	Threshold int    `json:"threshold" validate:"gte=0"`
}

type stockChangeRequest struct {
	Amount int    `json:"amount" validate:"required,gt=0"`
	Notes  string `json:"notes"`
}

type bulkRequest struct {
	IDs    []int64 `json:"ids" validate:"required,min=1"`
	Action string  `json:"action" validate:"required,oneof=threshold deduct"`
	Value  int     `json:"value" validate:"gte=0"`
}

// List handles GET /api/admin/inventory. With ?low=true only items at or
// below their threshold are returned.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListInventory(r.Context(), h.DB, r.URL.Query().Get("low") == "true")
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list inventory")
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/admin/inventory.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInventoryRequest
	if !bind(w, r, &req) {
		return
	}

	item, err := store.CreateInventoryItem(r.Context(), h.DB, req.Name, req.SKU, req.Unit, req.Quantity, req.Threshold, userID(r.Context()))
	if errors.Is(err, store.ErrItemExists) {
		jsonError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create inventory item")
		return
	}

	slog.Info("inventory item created", "item", item.Name, "quantity", item.Quantity)
	jsonResponse(w, http.StatusCreated, item)
}

// loadItem fetches the {id} item, writing the error response when it
// cannot be returned.
func (h *InventoryHandler) loadItem(w http.ResponseWriter, r *http.Request) *model.InventoryItem {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return nil
	}
	item, err := store.GetInventoryItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get inventory item")
		return nil
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "inventory item not found")
		return nil
	}
	return item
}

// Get handles GET /api/admin/inventory/{id}.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if item := h.loadItem(w, r); item != nil {
		jsonResponse(w, http.StatusOK, item)
	}
}

// Update handles PUT /api/admin/inventory/{id}.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	item := h.loadItem(w, r)
	if item == nil {
		return
	}

	var req updateInventoryRequest
	if !bind(w, r, &req) {
		return
	}
	if req.SKU == "" {
		req.SKU = item.SKU
	}
	if req.Unit == "" {
		req.Unit = item.Unit
	}

	if req.Name != item.Name {
		other, err := store.GetInventoryItemByName(r.Context(), h.DB, req.Name)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to update inventory item")
			return
		}
		if other != nil {
			jsonError(w, http.StatusConflict, store.ErrItemExists.Error())
			return
		}
	}

	if err := store.UpdateInventoryItem(r.Context(), h.DB, item.ID, req.Name, req.SKU, req.Unit, req.Threshold); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update inventory item")
		return
	}

	updated, _ := store.GetInventoryItem(r.Context(), h.DB, item.ID)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/admin/inventory/{id}.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item := h.loadItem(w, r)
	if item == nil {
		return
	}

	if err := store.DeleteInventoryItem(r.Context(), h.DB, item.ID); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete inventory item")
		return
	}

	slog.Info("inventory item deleted", "item", item.Name)
	w.WriteHeader(http.StatusNoContent)
}

// Deduct handles POST /api/admin/inventory/{id}/deduct. Stock never goes
// below zero; a shortfall is reported as a warning.
func (h *InventoryHandler) Deduct(w http.ResponseWriter, r *http.Request) {
	item := h.loadItem(w, r)
	if item == nil {
		return
	}

	var req stockChangeRequest
	if !bind(w, r, &req) {
		return
	}

	updated, err := store.DeductInventory(r.Context(), h.DB, item.ID, req.Amount, req.Notes, userID(r.Context()))
	if err != nil || updated == nil {
		jsonError(w, http.StatusInternalServerError, "failed to deduct stock")
		return
	}

	metrics.StockDeducted.WithLabelValues(item.Name).Add(float64(item.Quantity - updated.Quantity))

	resp := map[string]any{"item": updated}
	if req.Amount > item.Quantity {
		metrics.StockShortfalls.Inc()
		resp["warning"] = "insufficient stock; quantity set to 0"
	}
	if updated.LowStock && !item.LowStock {
		publish(r.Context(), h.Events, events.OrderEvent{
			Type:     events.TypeStockLow,
			ItemID:   updated.ID,
			ItemName: updated.Name,
			Quantity: updated.Quantity,
		})
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Restock handles POST /api/admin/inventory/{id}/restock.
func (h *InventoryHandler) Restock(w http.ResponseWriter, r *http.Request) {
	item := h.loadItem(w, r)
	if item == nil {
		return
	}

	var req stockChangeRequest
	if !bind(w, r, &req) {
		return
	}

	updated, err := store.RestockInventory(r.Context(), h.DB, item.ID, req.Amount, req.Notes, userID(r.Context()))
	if err != nil || updated == nil {
		jsonError(w, http.StatusInternalServerError, "failed to restock")
		return
	}

	slog.Info("inventory restocked", "item", updated.Name, "amount", req.Amount, "quantity", updated.Quantity)
	jsonResponse(w, http.StatusOK, updated)
}

// Bulk handles POST /api/admin/inventory/bulk.
func (h *InventoryHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !bind(w, r, &req) {
		return
	}
	if req.Action == model.BulkDeduct && req.Value == 0 {
		validationError(w, fieldErrors{"value": "must be greater than 0"})
		return
	}

	items, err := store.BulkUpdateInventory(r.Context(), h.DB, req.IDs, req.Action, req.Value, userID(r.Context()))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update inventory")
		return
	}

	slog.Info("bulk inventory update", "action", req.Action, "value", req.Value, "items", len(items))
	jsonResponse(w, http.StatusOK, items)
}

// Movements handles GET /api/admin/inventory/movements and
// GET /api/admin/inventory/{id}/movements.
func (h *InventoryHandler) Movements(w http.ResponseWriter, r *http.Request) {
	var itemID int64
	if r.PathValue("id") != "" {
		item := h.loadItem(w, r)
		if item == nil {
			return
		}
		itemID = item.ID
	}

	movements, err := store.ListMovements(r.Context(), h.DB, itemID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list stock movements")
		return
	}
	if movements == nil {
		movements = []model.StockMovement{}
	}
	jsonResponse(w, http.StatusOK, movements)
}
