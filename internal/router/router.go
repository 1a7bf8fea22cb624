package router

import (
	"net/http"

	"storefront-orders/internal/handler"
	"storefront-orders/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Product   *handler.ProductHandler
	Order     *handler.OrderHandler
	Inventory *handler.InventoryHandler
	Delivery  *handler.DeliveryHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Request id first so every later layer can log it, then:
	// Recovery -> Logging -> CORS -> APIKeyAuth
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.APIKeyAuth(apiKey, logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Product.GetAll)
			r.Get("/{id}", h.Product.GetByID)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.Order.Create)
			r.Get("/{code}", h.Order.GetByCode)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/availability", h.Inventory.Availability)
			r.Post("/reservations", h.Inventory.Reserve)
			r.Post("/reservations/{id}/confirm", h.Inventory.Confirm)
			r.Post("/reservations/{id}/release", h.Inventory.Release)
		})

		r.Get("/delivery/quote", h.Delivery.Quote)
	})

	return r
}
