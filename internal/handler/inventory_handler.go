package handler

import (
	"context"
	"net/http"

	"storefront-orders/internal/model"
	"storefront-orders/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// InventoryHandler exposes availability checks and stock reservations.
type InventoryHandler struct {
	service service.InventoryService
	logger  zerolog.Logger
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(service service.InventoryService, logger zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: service,
		logger:  logger.With().Str("handler", "inventory").Logger(),
	}
}

// Availability handles POST /api/inventory/availability requests.
func (h *InventoryHandler) Availability(w http.ResponseWriter, r *http.Request) {
	var req model.StockCheckRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	shortfalls, err := h.service.CheckAvailability(r.Context(), req.Items)
	if err != nil {
		writeServiceError(w, r, err, "failed to check availability", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.AvailabilityResponse{
		Available:  len(shortfalls) == 0,
		Shortfalls: shortfalls,
	})
}

// Reserve handles POST /api/inventory/reservations requests.
func (h *InventoryHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req model.StockCheckRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	reservation, err := h.service.Reserve(r.Context(), req.Items)
	if err != nil {
		writeServiceError(w, r, err, "failed to reserve stock", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, reservation)
}

// Confirm handles POST /api/inventory/reservations/{id}/confirm requests.
func (h *InventoryHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.service.Confirm, "failed to confirm reservation")
}

// Release handles POST /api/inventory/reservations/{id}/release requests.
func (h *InventoryHandler) Release(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.service.Release, "failed to release reservation")
}

type reservationUpdate func(ctx context.Context, reservationID string, productIDs []string) (int, error)

func (h *InventoryHandler) update(w http.ResponseWriter, r *http.Request, apply reservationUpdate, fallback string) {
	var req model.ReservationUpdateRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req, h.logger) {
		return
	}

	id := chi.URLParam(r, "id")
	affected, err := apply(r.Context(), id, req.ProductIDs)
	if err != nil {
		writeServiceError(w, r, err, fallback, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.ReservationUpdateResponse{
		ReservationID: id,
		Affected:      affected,
	})
}
