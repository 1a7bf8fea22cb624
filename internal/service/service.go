package service

import (
	"context"
	"time"

	"storefront-orders/internal/model"
)

// StockReader exposes the stock counters behind the storefront catalogue.
type StockReader interface {
	// ListStock returns one page of products matching filter.
	ListStock(ctx context.Context, filter model.StockFilter) ([]model.Product, error)

	// StockLevel returns one product with its stock, reserved and available counts.
	StockLevel(ctx context.Context, productID string) (*model.Product, error)
}

// InventoryService is the stock reservation coordinator. Reservations are
// all-or-nothing; confirm and release only move items that are still held.
type InventoryService interface {
	StockReader

	// CheckAvailability returns the items whose product cannot cover the
	// requested quantity. It mutates nothing.
	CheckAvailability(ctx context.Context, items []model.StockRequest) ([]model.StockShortfall, error)

	// Reserve holds stock for every item or for none of them.
	Reserve(ctx context.Context, items []model.StockRequest) (*model.Reservation, error)

	// Confirm turns held stock into sold stock. Empty productIDs confirms every held item.
	Confirm(ctx context.Context, reservationID string, productIDs []string) (int, error)

	// Release returns held stock. Empty productIDs releases every held item.
	Release(ctx context.Context, reservationID string, productIDs []string) (int, error)
}

// OrderService defines operations for order management.
type OrderService interface {
	// CreateOrders validates, plans and persists the orders of one submission,
	// at most once per idempotency key.
	CreateOrders(ctx context.Context, req *model.OrderRequest) (*model.OrderBatch, error)

	// GetByCode retrieves the orders filed under an order code.
	GetByCode(ctx context.Context, code string) ([]model.Order, error)
}

// DeliveryService prices delivery per city.
type DeliveryService interface {
	// Quote returns the delivery cost for city.
	Quote(ctx context.Context, city string) (*model.DeliveryQuote, error)
}

// OrderPublisher announces newly created orders.
type OrderPublisher interface {
	PublishOrderCreated(ctx context.Context, order model.Order) error
}

// ExpiryScheduler arranges for a reservation to be released when it expires.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, reservationID string, at time.Time) error
}
