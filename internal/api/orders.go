package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/erazemk/tiskarna/internal/auth"
	"github.com/erazemk/tiskarna/internal/catalog"
	"github.com/erazemk/tiskarna/internal/events"
	"github.com/erazemk/tiskarna/internal/idempotency"
	"github.com/erazemk/tiskarna/internal/imaging"
	"github.com/erazemk/tiskarna/internal/metrics"
	"github.com/erazemk/tiskarna/internal/model"
	"github.com/erazemk/tiskarna/internal/pricing"
	"github.com/erazemk/tiskarna/internal/store"
)

// OrdersHandler handles customer-facing order endpoints.
type OrdersHandler struct {
	DB          *sql.DB
	Events      events.Publisher
	Idempotency idempotency.Store
}

type shippingRequest struct {
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	ZipCode string `json:"zip_code" validate:"required"`
}

type submitOrderRequest struct {
	ServiceID     string          `json:"service_id" validate:"required"`
	Quantity      int             `json:"quantity" validate:"required,gt=0"`
	PaperType     string          `json:"paper_type" validate:"required"`
	PrintColor    string          `json:"print_color"`
	PrintSides    string          `json:"print_sides"`
	Orientation   string          `json:"orientation"`
	Notes         string          `json:"notes"`
	FileName      string          `json:"file_name"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email" validate:"omitempty,email"`
	Shipping      shippingRequest `json:"shipping"`
}

type orderResponse struct {
	Order *model.Order  `json:"order"`
	Quote quoteResponse `json:"quote"`
}

// draftResponse is a prefilled order form for ordering the same job again.
type draftResponse struct {
	ServiceID   string         `json:"service_id"`
	ServiceName string         `json:"service_name"`
	Quantity    int            `json:"quantity"`
	PaperType   string         `json:"paper_type"`
	PrintColor  string         `json:"print_color"`
	PrintSides  string         `json:"print_sides"`
	Orientation string         `json:"orientation"`
	Notes       string         `json:"notes"`
	Shipping    model.Shipping `json:"shipping"`
	Quote       quoteResponse  `json:"quote"`
}

// applyDefaults fills print options the customer left at their defaults.
func (req *submitOrderRequest) applyDefaults(claims *auth.Claims) {
	if req.PrintColor == "" {
		req.PrintColor = model.ColorFull
	}
	if req.PrintSides == "" {
		req.PrintSides = model.SidesSingle
	}
	if req.Orientation == "" {
		req.Orientation = model.OrientationPortrait
	}
	if claims != nil {
		if req.CustomerName == "" {
			req.CustomerName = claims.Name
		}
		// Signed-in orders always belong to the account's own address.
		req.CustomerEmail = claims.Email
	}
}

// idempotencyScope names the caller an Idempotency-Key belongs to.
func idempotencyScope(claims *auth.Claims, customerEmail string) string {
	if claims != nil {
		return "user:" + strconv.FormatInt(claims.UserID, 10)
	}
	return "guest:" + model.NormalizeEmail(customerEmail)
}

func (req *submitOrderRequest) check() error {
	fe := fieldErrors{}
	if !model.ValidPrintColor(req.PrintColor) {
		fe["print_color"] = "must be one of: " + model.ColorFull + " " + model.ColorBW
	}
	if !model.ValidPrintSides(req.PrintSides) {
		fe["print_sides"] = "must be one of: " + model.SidesSingle + " " + model.SidesDouble
	}
	if !model.ValidOrientation(req.Orientation) {
		fe["orientation"] = "must be one of: " + model.OrientationPortrait + " " + model.OrientationLandscape
	}
	if req.CustomerName == "" {
		fe["customer_name"] = "required"
	}
	if req.CustomerEmail == "" {
		fe["customer_email"] = "required"
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

// Submit handles POST /api/orders. Guests may order Standard services;
// Premium services need a signed-in customer. A repeated Idempotency-Key
// from the same caller with the same body returns the order created by the
// first request; the same key with a different body is rejected.
func (h *OrdersHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req submitOrderRequest
	if !bind(w, r, &req) {
		return
	}
	req.applyDefaults(claims)
	if err := req.check(); err != nil {
		validationError(w, err)
		return
	}

	service, ok := catalog.Get(req.ServiceID)
	if !ok {
		jsonError(w, http.StatusBadRequest, "unknown service")
		return
	}
	if service.RequiresAccount() && claims == nil {
		jsonError(w, http.StatusUnauthorized, "sign in to order "+service.Name)
		return
	}

	var key, fingerprint string
	if k := r.Header.Get("Idempotency-Key"); k != "" {
		key = idempotency.ScopedKey(idempotencyScope(claims, req.CustomerEmail), k)

		var err error
		fingerprint, err = idempotency.Fingerprint(req)
		if err != nil {
			slog.Error("fingerprinting order", "error", err)
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}

		existing, err := h.Idempotency.Reserve(r.Context(), key, fingerprint)
		switch {
		case errors.Is(err, idempotency.ErrMismatch):
			jsonError(w, http.StatusUnprocessableEntity, err.Error())
			return
		case errors.Is(err, idempotency.ErrInProgress):
			jsonError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			slog.Error("reserving idempotency key", "error", err)
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if existing > 0 {
			h.replay(w, r, existing, claims, req.CustomerEmail)
			return
		}
	}

	order, q, err := h.create(r.Context(), service, req, claims)
	if err != nil {
		if key != "" {
			if rerr := h.Idempotency.Release(r.Context(), key); rerr != nil {
				slog.Error("releasing idempotency key", "error", rerr)
			}
		}
		slog.Error("creating order", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create order")
		return
	}
	if key != "" {
		if err := h.Idempotency.Complete(r.Context(), key, fingerprint, order.ID); err != nil {
			slog.Error("completing idempotency key", "error", err)
		}
	}

	metrics.OrdersSubmitted.WithLabelValues(service.Name).Inc()
	publish(r.Context(), h.Events, events.OrderEvent{
		Type:     events.TypeOrderSubmitted,
		OrderID:  order.ID,
		To:       order.Status,
		Quantity: order.Quantity,
	})

	slog.Info("order submitted", "order", order.ID, "service", service.Name, "customer", order.CustomerEmail)
	jsonResponse(w, http.StatusCreated, orderResponse{Order: order, Quote: newQuoteResponse(service.ID, order.Quantity, q)})
}

func (h *OrdersHandler) create(ctx context.Context, service model.Service, req submitOrderRequest, claims *auth.Claims) (*model.Order, pricing.Quote, error) {
	q := quoteFor(service, req.Quantity, req.PaperType, req.PrintColor, req.PrintSides)

	o := model.Order{
		ServiceID:     service.ID,
		ServiceName:   service.Name,
		Quantity:      req.Quantity,
		PaperType:     req.PaperType,
		PrintColor:    req.PrintColor,
		PrintSides:    req.PrintSides,
		Orientation:   req.Orientation,
		Notes:         req.Notes,
		TotalPrice:    q.Amount(),
		FileName:      req.FileName,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Shipping: model.Shipping{
			Address: req.Shipping.Address,
			City:    req.Shipping.City,
			ZipCode: req.Shipping.ZipCode,
		},
	}
	if claims != nil {
		o.CustomerID = &claims.UserID
	}

	order, err := store.CreateOrder(ctx, h.DB, o)
	return order, q, err
}

// replay answers a repeated submission with the order it created, provided
// the caller owns that order.
func (h *OrdersHandler) replay(w http.ResponseWriter, r *http.Request, orderID int64, claims *auth.Claims, customerEmail string) {
	order, err := store.GetOrder(r.Context(), h.DB, orderID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load order")
		return
	}
	if order == nil || !ownsSubmission(claims, customerEmail, order) {
		slog.Warn("idempotency key points at a foreign order", "order", orderID)
		jsonError(w, http.StatusConflict, "idempotency key already used")
		return
	}
	service, _ := catalog.Get(order.ServiceID)
	q := quoteFor(service, order.Quantity, order.PaperType, order.PrintColor, order.PrintSides)
	w.Header().Set("Idempotent-Replayed", "true")
	jsonResponse(w, http.StatusOK, orderResponse{Order: order, Quote: newQuoteResponse(service.ID, order.Quantity, q)})
}

// Mine handles GET /api/orders/mine.
func (h *OrdersHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	orders, err := store.ListOrders(r.Context(), h.DB, store.OrderFilter{
		CustomerEmail: claims.Email,
		Status:        r.URL.Query().Get("status"),
	})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	jsonResponse(w, http.StatusOK, orders)
}

// loadOwnOrder fetches the {id} order if the caller may see it, writing
// the error response otherwise. Orders of other customers look missing.
func (h *OrdersHandler) loadOwnOrder(w http.ResponseWriter, r *http.Request) *model.Order {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return nil
	}

	order, err := store.GetOrder(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get order")
		return nil
	}
	if order == nil || !canAccess(GetClaims(r.Context()), order) {
		jsonError(w, http.StatusNotFound, "order not found")
		return nil
	}
	return order
}

func canAccess(claims *auth.Claims, o *model.Order) bool {
	if claims == nil {
		return false
	}
	if claims.Role == model.RoleAdmin {
		return true
	}
	if o.CustomerID != nil && *o.CustomerID == claims.UserID {
		return true
	}
	return o.CustomerEmail == model.NormalizeEmail(claims.Email)
}

// ownsSubmission reports whether the caller of a submission placed o.
func ownsSubmission(claims *auth.Claims, customerEmail string, o *model.Order) bool {
	if claims != nil {
		return o.CustomerID != nil && *o.CustomerID == claims.UserID
	}
	return o.CustomerID == nil && o.CustomerEmail == model.NormalizeEmail(customerEmail)
}

// Get handles GET /api/orders/{id}.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	order := h.loadOwnOrder(w, r)
	if order == nil {
		return
	}
	jsonResponse(w, http.StatusOK, order)
}

// Reorder handles GET /api/orders/{id}/reorder.
func (h *OrdersHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	order := h.loadOwnOrder(w, r)
	if order == nil {
		return
	}

	service, ok := catalog.Get(order.ServiceID)
	if !ok {
		jsonError(w, http.StatusGone, "service is no longer offered")
		return
	}

	q := quoteFor(service, order.Quantity, order.PaperType, order.PrintColor, order.PrintSides)
	jsonResponse(w, http.StatusOK, draftResponse{
		ServiceID:   service.ID,
		ServiceName: service.Name,
		Quantity:    order.Quantity,
		PaperType:   order.PaperType,
		PrintColor:  order.PrintColor,
		PrintSides:  order.PrintSides,
		Orientation: order.Orientation,
		Notes:       order.Notes,
		Shipping:    order.Shipping,
		Quote:       newQuoteResponse(service.ID, order.Quantity, q),
	})
}

// UploadArtwork handles PUT /api/orders/{id}/artwork.
func (h *OrdersHandler) UploadArtwork(w http.ResponseWriter, r *http.Request) {
	order := h.loadOwnOrder(w, r)
	if order == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+1)
	defer r.Body.Close()

	art, err := imaging.Process(r.Body)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = store.SetOrderArtwork(r.Context(), h.DB, store.Artwork{
		OrderID:     order.ID,
		StorageKey:  uuid.NewString(),
		Data:        art.Data,
		MIME:        art.MIME,
		Preview:     art.Preview,
		PreviewMIME: art.PreviewMIME,
	})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to save artwork")
		return
	}

	slog.Info("artwork uploaded", "order", order.ID, "mime", art.MIME, "bytes", len(art.Data))
	jsonResponse(w, http.StatusOK, map[string]any{
		"order_id":    order.ID,
		"mime":        art.MIME,
		"size":        len(art.Data),
		"has_preview": art.Preview != nil,
	})
}

// GetArtwork handles GET /api/orders/{id}/artwork.
func (h *OrdersHandler) GetArtwork(w http.ResponseWriter, r *http.Request) {
	h.serveArtwork(w, r, false)
}

// GetPreview handles GET /api/orders/{id}/preview.
func (h *OrdersHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	h.serveArtwork(w, r, true)
}

func (h *OrdersHandler) serveArtwork(w http.ResponseWriter, r *http.Request, preview bool) {
	order := h.loadOwnOrder(w, r)
	if order == nil {
		return
	}

	art, err := store.GetOrderArtwork(r.Context(), h.DB, order.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get artwork")
		return
	}
	if art == nil {
		jsonError(w, http.StatusNotFound, "no artwork uploaded")
		return
	}

	data, mime := art.Data, art.MIME
	if preview {
		if art.Preview == nil {
			jsonError(w, http.StatusNotFound, "no preview available")
			return
		}
		data, mime = art.Preview, art.PreviewMIME
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("ETag", `"`+art.StorageKey+`"`)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

// publish sends e, logging rather than failing on delivery errors.
func publish(ctx context.Context, p events.Publisher, e events.OrderEvent) {
	if err := p.Publish(ctx, events.Stamp(e)); err != nil {
		slog.Error("publishing event", "type", e.Type, "order", e.OrderID, "error", err)
	}
}
