package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatusPending is the status every new order starts in.
const OrderStatusPending = "pending"

// Order represents a persisted customer order.
type Order struct {
	ID uuid.UUID `json:"id" db:"id"`
	Customer
	OrderCode       string           `json:"order_code" db:"order_code"`
	Subtotal        decimal.Decimal  `json:"subtotal" db:"subtotal"`
	DeliveryCost    decimal.Decimal  `json:"delivery_cost" db:"delivery_cost"`
	TotalAmount     decimal.Decimal  `json:"total_amount" db:"total_amount"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price" db:"discounted_price"`
	OrderStatus     string           `json:"order_status" db:"order_status"`
	SellerName      string           `json:"seller_name" db:"seller_name"`
	IdempotencyKey  string           `json:"idempotency_key" db:"idempotency_key"`
	ShippingType    ShippingType     `json:"shipping_type" db:"shipping_type"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	Items           []OrderItem      `json:"items,omitempty"`
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	OrderID         uuid.UUID        `json:"order_id" db:"order_id"`
	ProductID       string           `json:"product_id" db:"product_id"`
	ProductName     string           `json:"product_name" db:"product_name"`
	Quantity        int              `json:"quantity" db:"quantity"`
	Price           decimal.Decimal  `json:"price" db:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price" db:"discounted_price"`
	SellerName      string           `json:"seller_name" db:"seller_name"`
}

// OrderRequest is the boundary payload for creating order(s).
type OrderRequest struct {
	Customer
	Items           []OrderItemRequest `json:"items"`
	ShippingType    ShippingType       `json:"shipping_type"`
	FastShipping    bool               `json:"fast_shipping,omitempty"`
	OrderCode       string             `json:"order_code"`
	IdempotencyKey  string             `json:"idempotency_key"`
	DeliveryCost    Scalar             `json:"delivery_cost,omitempty"`
	Subtotal        Scalar             `json:"subtotal,omitempty"`
	TotalAmount     Scalar             `json:"total_amount,omitempty"`
	DiscountedPrice Scalar             `json:"discounted_price,omitempty"`
}

// Mode resolves the requested shipping type, honouring the legacy fast_shipping flag.
func (r *OrderRequest) Mode() ShippingType {
	if r.FastShipping {
		return ShippingFast
	}
	if r.ShippingType == "" {
		return ShippingUnified
	}
	return r.ShippingType
}

// OrderItemRequest represents a single cart line in an order request.
type OrderItemRequest struct {
	ProductID       Scalar `json:"product_id"`
	ProductName     string `json:"product_name,omitempty"`
	Quantity        Scalar `json:"quantity"`
	Price           Scalar `json:"price"`
	DiscountedPrice Scalar `json:"discounted_price,omitempty"`
	SellerName      string `json:"seller_name,omitempty"`
	MainStoreName   string `json:"main_store_name,omitempty"`
	StoreName       string `json:"store_name,omitempty"`
	MainStore       string `json:"main_store,omitempty"`
	IdempotencyKey  string `json:"idempotency_key,omitempty"`
}

// ItemOutcomeStatus reports what happened to one fast-shipping sub-order.
type ItemOutcomeStatus string

const (
	OutcomeCreated  ItemOutcomeStatus = "created"
	OutcomeExisting ItemOutcomeStatus = "existing"
	OutcomeFailed   ItemOutcomeStatus = "failed"
)

// ItemOutcome is the per-item result of a fast-shipping submission.
type ItemOutcome struct {
	OrderCode      string            `json:"order_code"`
	IdempotencyKey string            `json:"idempotency_key"`
	ProductID      string            `json:"product_id"`
	Status         ItemOutcomeStatus `json:"status"`
	Error          string            `json:"error,omitempty"`
}

// OrderResponse is the boundary success payload.
type OrderResponse struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	ShippingType ShippingType  `json:"shipping_type"`
	OrdersCount  int           `json:"orders_count"`
	Orders       []Order       `json:"orders"`
	Replayed     bool          `json:"replayed,omitempty"`
	Outcomes     []ItemOutcome `json:"outcomes,omitempty"`
}
