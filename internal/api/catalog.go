package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/tiskarna/internal/catalog"
	"github.com/erazemk/tiskarna/internal/model"
	"github.com/erazemk/tiskarna/internal/pricing"
	"github.com/erazemk/tiskarna/internal/store"
)

// CatalogHandler serves the public service catalog and price quotes.
type CatalogHandler struct {
	DB *sql.DB
}

type quoteRequest struct {
	ServiceID  string `json:"service_id" validate:"required"`
	Quantity   int    `json:"quantity"`
	PaperType  string `json:"paper_type"`
	PrintColor string `json:"print_color"`
	PrintSides string `json:"print_sides"`
}

type quoteResponse struct {
	ServiceID      string  `json:"service_id"`
	Quantity       int     `json:"quantity"`
	Base           float64 `json:"base"`
	DiscountRate   float64 `json:"discount_rate"`
	DiscountAmount float64 `json:"discount_amount"`
	Total          float64 `json:"total"`
}

func newQuoteResponse(serviceID string, quantity int, q pricing.Quote) quoteResponse {
	return quoteResponse{
		ServiceID:      serviceID,
		Quantity:       quantity,
		Base:           q.Base.InexactFloat64(),
		DiscountRate:   q.DiscountRate.InexactFloat64(),
		DiscountAmount: q.DiscountAmount.InexactFloat64(),
		Total:          q.Amount(),
	}
}

// quoteFor prices an order of service with the given options.
func quoteFor(service model.Service, quantity int, paperType, printColor, printSides string) pricing.Quote {
	return pricing.Calculate(pricing.Input{
		BasePrice:  service.BasePrice,
		Quantity:   quantity,
		PaperType:  paperType,
		PrintColor: printColor,
		PrintSides: printSides,
	})
}

// List handles GET /api/catalog.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	tier := r.URL.Query().Get("tier")
	services := catalog.List()
	if tier != "" {
		filtered := services[:0]
		for _, s := range services {
			if s.Tier == tier {
				filtered = append(filtered, s)
			}
		}
		services = filtered
	}
	jsonResponse(w, http.StatusOK, services)
}

// Get handles GET /api/catalog/{id}.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	service, ok := catalog.Get(r.PathValue("id"))
	if !ok {
		jsonError(w, http.StatusNotFound, "service not found")
		return
	}
	jsonResponse(w, http.StatusOK, service)
}

// Papers handles GET /api/catalog/papers.
func (h *CatalogHandler) Papers(w http.ResponseWriter, r *http.Request) {
	papers, err := store.ListPaperOptions(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list paper options")
		return
	}

	names := make([]string, 0, len(papers))
	for _, p := range papers {
		names = append(names, p.Name)
	}
	jsonResponse(w, http.StatusOK, names)
}

// Quote handles POST /api/quote.
func (h *CatalogHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !bind(w, r, &req) {
		return
	}

	service, ok := catalog.Get(req.ServiceID)
	if !ok {
		jsonError(w, http.StatusNotFound, "service not found")
		return
	}

	q := quoteFor(service, req.Quantity, req.PaperType, req.PrintColor, req.PrintSides)
	jsonResponse(w, http.StatusOK, newQuoteResponse(service.ID, req.Quantity, q))
}
