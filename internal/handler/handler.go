package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"storefront-orders/internal/model"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes resp with the request's correlation id attached.
func writeError(w http.ResponseWriter, r *http.Request, status int, resp model.ErrorResponse, logger zerolog.Logger) {
	resp.CorrelationID = middleware.GetReqID(r.Context())

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("error", resp.Error).
		Str("message", resp.Message).
		Int("status", status).
		Str("correlation_id", resp.CorrelationID).
		Msg("handler error")

	writeJSON(w, status, resp)
}

// writeServiceError maps a service error onto a status code and error body.
// Unrecognised errors become a 500 carrying fallback as the message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string, logger zerolog.Logger) {
	var (
		verr   *model.ValidationError
		stock  *model.StockUnavailableError
		domain *model.DomainError
	)

	switch {
	case errors.As(err, &verr):
		writeError(w, r, http.StatusBadRequest, model.ErrorResponse{
			Error:   model.ErrCodeValidation,
			Message: "validation failed",
			Reasons: verr.Reasons,
		}, logger)
	case errors.As(err, &stock):
		writeError(w, r, http.StatusConflict, model.ErrorResponse{
			Error:      model.ErrCodeStockUnavailable,
			Message:    "insufficient stock",
			Shortfalls: stock.Shortfalls,
		}, logger)
	case errors.As(err, &domain):
		writeError(w, r, domainStatus(domain), model.ErrorResponse{
			Error:   domain.Code,
			Message: domain.Message,
		}, logger)
	default:
		logger.Error().Err(err).Msg(fallback)
		writeError(w, r, http.StatusInternalServerError, model.ErrorResponse{
			Error:   model.ErrCodeInternalError,
			Message: fallback,
		}, logger)
	}
}

func domainStatus(err *model.DomainError) int {
	switch err.Code {
	case model.ErrCodeOrderNotFound,
		model.ErrCodeProductNotFound,
		model.ErrCodeReservationNotFound,
		model.ErrCodeDeliveryUnavailable:
		return http.StatusNotFound
	case model.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// decodeJSON reads a bounded JSON body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger zerolog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrorResponse{
			Error:   model.ErrCodeInvalidJSON,
			Message: "invalid request body",
		}, logger)
		return false
	}
	return true
}
