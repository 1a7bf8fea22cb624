package handler

import (
	"net/http"

	"storefront-orders/internal/service"

	"github.com/rs/zerolog"
)

// DeliveryHandler quotes delivery costs.
type DeliveryHandler struct {
	service service.DeliveryService
	logger  zerolog.Logger
}

// NewDeliveryHandler creates a new delivery handler.
func NewDeliveryHandler(service service.DeliveryService, logger zerolog.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		service: service,
		logger:  logger.With().Str("handler", "delivery").Logger(),
	}
}

// Quote handles GET /api/delivery/quote?city= requests.
func (h *DeliveryHandler) Quote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.service.Quote(r.Context(), r.URL.Query().Get("city"))
	if err != nil {
		writeServiceError(w, r, err, "failed to quote delivery", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}
