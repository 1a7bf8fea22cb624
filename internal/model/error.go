package model

import (
	"fmt"
	"strings"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string           `json:"error"`
	Message       string           `json:"message,omitempty"`
	Reasons       []string         `json:"reasons,omitempty"`
	Shortfalls    []StockShortfall `json:"shortfalls,omitempty"`
	CorrelationID string           `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON           = "INVALID_JSON"
	ErrCodeMissingField          = "MISSING_FIELD"
	ErrCodeValidation            = "VALIDATION_FAILED"
	ErrCodeInvalidShippingType   = "INVALID_SHIPPING_TYPE"
	ErrCodeMissingIdempotencyKey = "MISSING_IDEMPOTENCY_KEY"
	ErrCodeStockUnavailable      = "STOCK_UNAVAILABLE"
	ErrCodeProductNotFound       = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidQuantity       = "INVALID_QUANTITY"
	ErrCodeOrderNotFound         = "ORDER_NOT_FOUND"
	ErrCodeReservationNotFound   = "RESERVATION_NOT_FOUND"
	ErrCodeDeliveryUnavailable   = "DELIVERY_UNAVAILABLE"
	ErrCodeUnauthorised          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeInternalError         = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidShippingType   = NewDomainError(ErrCodeInvalidShippingType, "shipping type must be unified or fast")
	ErrMissingIdempotencyKey = NewDomainError(ErrCodeMissingIdempotencyKey, "idempotency key is required")
	ErrProductNotFound       = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrInvalidQuantity       = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrOrderNotFound         = NewDomainError(ErrCodeOrderNotFound, "order not found")
	ErrReservationNotFound   = NewDomainError(ErrCodeReservationNotFound, "reservation not found")
	ErrDeliveryUnavailable   = NewDomainError(ErrCodeDeliveryUnavailable, "no delivery rate for this city")
)

// ValidationError collects every rule a checkout payload violated.
type ValidationError struct {
	Reasons []string
}

// NewValidationError creates a validation error from one or more reasons.
func NewValidationError(reasons ...string) *ValidationError {
	return &ValidationError{Reasons: reasons}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// Code returns the API error code.
func (e *ValidationError) Code() string {
	return ErrCodeValidation
}

// StockShortfall describes a product that cannot cover the requested quantity.
type StockShortfall struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// StockUnavailableError is returned when availability checks or reservations fail.
type StockUnavailableError struct {
	Shortfalls []StockShortfall
}

func (e *StockUnavailableError) Error() string {
	ids := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		ids[i] = fmt.Sprintf("%s (requested %d, available %d)", s.ProductID, s.Requested, s.Available)
	}
	return "insufficient stock: " + strings.Join(ids, ", ")
}
