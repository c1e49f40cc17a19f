// Package api serves the shop's HTTP/JSON interface.
package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/tiskarna/internal/events"
	"github.com/erazemk/tiskarna/internal/idempotency"
	"github.com/erazemk/tiskarna/internal/model"
)

// Options holds the router's optional collaborators. Zero values fall back
// to logging events and remembering idempotency keys in memory.
type Options struct {
	Events      events.Publisher
	Idempotency idempotency.Store
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, opts Options) http.Handler {
	if opts.Events == nil {
		opts.Events = events.LogPublisher{}
	}
	if opts.Idempotency == nil {
		opts.Idempotency = idempotency.NewMemoryStore()
	}

	mux := http.NewServeMux()

	catalogHandler := &CatalogHandler{DB: db}
	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	ordersHandler := &OrdersHandler{DB: db, Events: opts.Events, Idempotency: opts.Idempotency}
	adminOrdersHandler := &AdminOrdersHandler{DB: db, Events: opts.Events}
	inventoryHandler := &InventoryHandler{DB: db, Events: opts.Events}
	snapshotHandler := &SnapshotHandler{DB: db}
	usersHandler := &UsersHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	optionalAuth := OptionalAuth(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public: catalog, quotes, account creation.
	mux.HandleFunc("GET /api/catalog", catalogHandler.List)
	mux.HandleFunc("GET /api/catalog/papers", catalogHandler.Papers)
	mux.HandleFunc("GET /api/catalog/{id}", catalogHandler.Get)
	mux.HandleFunc("POST /api/quote", catalogHandler.Quote)
	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Guests may order Standard services.
	mux.Handle("POST /api/orders", optionalAuth(http.HandlerFunc(ordersHandler.Submit)))

	// Signed-in customers.
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("GET /api/orders/mine", authMW(http.HandlerFunc(ordersHandler.Mine)))
	mux.Handle("GET /api/orders/{id}", authMW(http.HandlerFunc(ordersHandler.Get)))
	mux.Handle("GET /api/orders/{id}/reorder", authMW(http.HandlerFunc(ordersHandler.Reorder)))
	mux.Handle("PUT /api/orders/{id}/artwork", authMW(http.HandlerFunc(ordersHandler.UploadArtwork)))
	mux.Handle("GET /api/orders/{id}/artwork", authMW(http.HandlerFunc(ordersHandler.GetArtwork)))
	mux.Handle("GET /api/orders/{id}/preview", authMW(http.HandlerFunc(ordersHandler.GetPreview)))

	// Back office.
	mux.Handle("GET /api/admin/dashboard", admin(adminOrdersHandler.Dashboard))
	mux.Handle("GET /api/admin/orders", admin(adminOrdersHandler.List))
	mux.Handle("PUT /api/admin/orders/{id}", admin(adminOrdersHandler.Update))
	mux.Handle("PUT /api/admin/orders/{id}/status", admin(adminOrdersHandler.SetStatus))

	mux.Handle("GET /api/admin/inventory", admin(inventoryHandler.List))
	mux.Handle("POST /api/admin/inventory", admin(inventoryHandler.Create))
	mux.Handle("POST /api/admin/inventory/bulk", admin(inventoryHandler.Bulk))
	mux.Handle("GET /api/admin/inventory/movements", admin(inventoryHandler.Movements))
	mux.Handle("GET /api/admin/inventory/{id}", admin(inventoryHandler.Get))
	mux.Handle("PUT /api/admin/inventory/{id}", admin(inventoryHandler.Update))
	mux.Handle("DELETE /api/admin/inventory/{id}", admin(inventoryHandler.Delete))
	mux.Handle("POST /api/admin/inventory/{id}/deduct", admin(inventoryHandler.Deduct))
	mux.Handle("POST /api/admin/inventory/{id}/restock", admin(inventoryHandler.Restock))
	mux.Handle("GET /api/admin/inventory/{id}/movements", admin(inventoryHandler.Movements))

	mux.Handle("GET /api/admin/users", admin(usersHandler.List))
	mux.Handle("GET /api/admin/users/{id}", admin(usersHandler.Get))

	mux.Handle("GET /api/admin/snapshot", admin(snapshotHandler.Export))
	mux.Handle("POST /api/admin/snapshot", admin(snapshotHandler.Import))

	return mux
}
