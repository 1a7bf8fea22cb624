package model

import (
	"github.com/shopspring/decimal"
)

// ShippingType selects how a cart is split into orders.
type ShippingType string

const (
	// ShippingUnified combines every item into a single order.
	ShippingUnified ShippingType = "unified"
	// ShippingFast creates one independent order per item.
	ShippingFast ShippingType = "fast"
)

// Valid reports whether t is a known shipping type.
func (t ShippingType) Valid() bool {
	return t == ShippingUnified || t == ShippingFast
}

// Seller name placeholders.
const (
	UnknownSeller = "غير محدد"
	MultiSeller   = "متعدد المتاجر"
	UnknownItem   = "منتج غير محدد"
)

// CartItem is a validated cart line.
type CartItem struct {
	ProductID       string           `json:"product_id"`
	ProductName     string           `json:"product_name"`
	Quantity        int              `json:"quantity"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	SellerName      string           `json:"seller_name"`
	IdempotencyKey  string           `json:"idempotency_key,omitempty"`
}

// LineTotal returns price x quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LineDiscount returns discounted price x quantity, or zero when there is no discount.
func (i CartItem) LineDiscount() decimal.Decimal {
	if i.DiscountedPrice == nil {
		return decimal.Zero
	}
	return i.DiscountedPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Customer holds the delivery contact fields.
type Customer struct {
	Name    string `json:"customer_name"`
	Phone   string `json:"customer_phone"`
	Address string `json:"customer_address"`
	City    string `json:"customer_city"`
	Notes   string `json:"customer_notes"`
}

// OrderDraft is a validated, deduplicated checkout payload.
type OrderDraft struct {
	OrderCode      string
	IdempotencyKey string
	Customer       Customer
	Items          []CartItem
	Subtotal       decimal.Decimal
	DiscountTotal  *decimal.Decimal
	DeliveryCost   decimal.Decimal
	Total          decimal.Decimal
	SellerName     string
	Warnings       []string
}

// OrderSpec is one order to be created, as produced by the fan-out planner.
type OrderSpec struct {
	OrderCode      string           `json:"order_code"`
	IdempotencyKey string           `json:"idempotency_key"`
	ShippingType   ShippingType     `json:"shipping_type"`
	SellerName     string           `json:"seller_name"`
	Customer       Customer         `json:"customer"`
	Items          []CartItem       `json:"items"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	DiscountTotal  *decimal.Decimal `json:"discounted_price,omitempty"`
	DeliveryCost   decimal.Decimal  `json:"delivery_cost"`
	Total          decimal.Decimal  `json:"total_amount"`
}
