package handler

import (
	"net/http"
	"strings"

	"storefront-orders/internal/model"
	"storefront-orders/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// IdempotencyKeyHeader carries the unified submission key when the body omits it.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, model.ErrorResponse{
			Error:   "METHOD_NOT_ALLOWED",
			Message: "method not allowed",
		}, h.logger)
		return
	}

	var req model.OrderRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	}

	batch, err := h.service.CreateOrders(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, "failed to create order", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, batch.Response())
}

// GetByCode handles GET /api/orders/{code} requests.
func (h *OrderHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if strings.TrimSpace(code) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrorResponse{
			Error:   model.ErrCodeMissingField,
			Message: "order code is required",
		}, h.logger)
		return
	}

	orders, err := h.service.GetByCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err, "failed to retrieve order", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.OrderBatch{
		ShippingType: orders[0].ShippingType,
		Orders:       orders,
	}.Response())
}
