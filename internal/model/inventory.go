package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalogue entry with its stock counters.
type Product struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Price         decimal.Decimal `json:"price" db:"price"`
	SellerName    string          `json:"seller_name" db:"seller_name"`
	Stock         int             `json:"stock" db:"stock"`
	ReservedStock int             `json:"reserved_stock" db:"reserved_stock"`
	Available     int             `json:"available" db:"available"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// StockFilter narrows a stock listing. Limit and Offset page the result,
// ordered by product name.
type StockFilter struct {
	Seller      string
	InStockOnly bool
	Limit       int
	Offset      int
}

// StockRequest asks for a quantity of one product.
type StockRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// StockCheckRequest is the body of availability and reservation requests.
type StockCheckRequest struct {
	Items []StockRequest `json:"items"`
}

// ReservationStatus is the state of one reserved product.
type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "reserved"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationReleased  ReservationStatus = "released"
)

// Reservation is an all-or-nothing hold on stock for a checkout.
type Reservation struct {
	ID        string            `json:"id"`
	Items     []ReservationItem `json:"items"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
}

// ReservationItem is the hold on one product.
type ReservationItem struct {
	ProductID string            `json:"product_id"`
	Quantity  int               `json:"quantity"`
	Status    ReservationStatus `json:"status"`
}

// AvailabilityResponse answers an availability check.
type AvailabilityResponse struct {
	Available  bool             `json:"available"`
	Shortfalls []StockShortfall `json:"shortfalls"`
}

// ReservationUpdateRequest selects which products of a reservation to confirm
// or release. An empty list applies to every product still held.
type ReservationUpdateRequest struct {
	ProductIDs []string `json:"product_ids,omitempty"`
}

// ReservationUpdateResponse reports how many held products changed state.
type ReservationUpdateResponse struct {
	ReservationID string `json:"reservation_id"`
	Affected      int    `json:"affected"`
}

// DeliveryQuote is the delivery price for a city.
type DeliveryQuote struct {
	City         string          `json:"city"`
	DeliveryCost decimal.Decimal `json:"delivery_cost"`
}
