package handler

import (
	"net/http"
	"strconv"

	"storefront-orders/internal/model"
	"storefront-orders/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ProductHandler serves the catalogue's stock levels.
type ProductHandler struct {
	stock  service.StockReader
	logger zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(stock service.StockReader, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		stock:  stock,
		logger: logger.With().Str("handler", "product").Logger(),
	}
}

// GetAll handles GET /api/products?seller=&in_stock=&limit=&offset=.
func (h *ProductHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryInt(w, r, "limit", 10)
	if !ok {
		return
	}
	offset, ok := h.queryInt(w, r, "offset", 0)
	if !ok {
		return
	}

	filter := model.StockFilter{
		Seller: r.URL.Query().Get("seller"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := r.URL.Query().Get("in_stock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			h.badParam(w, r, "in_stock")
			return
		}
		filter.InStockOnly = inStock
	}

	products, err := h.stock.ListStock(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "failed to retrieve products", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// GetByID handles GET /api/products/{id} requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	product, err := h.stock.StockLevel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "failed to retrieve product", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		h.badParam(w, r, name)
		return 0, false
	}
	return v, true
}

func (h *ProductHandler) badParam(w http.ResponseWriter, r *http.Request, name string) {
	writeError(w, r, http.StatusBadRequest, model.ErrorResponse{
		Error:   model.ErrCodeValidation,
		Message: "invalid " + name + " parameter",
	}, h.logger)
}
