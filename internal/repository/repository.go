package repository

import (
	"context"

	"storefront-orders/internal/model"

	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List returns the products matching filter with their stock counters.
	List(ctx context.Context, filter model.StockFilter) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil when absent.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// GetAvailability returns stock - reserved_stock for each known product.
	// Unknown IDs are absent from the map.
	GetAvailability(ctx context.Context, ids []string) (map[string]int, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// UpsertOrder inserts order unless its idempotency key is already bound.
	// On conflict order is overwritten with the stored row and its items, and
	// created is false.
	UpsertOrder(ctx context.Context, tx pgx.Tx, order *model.Order) (created bool, err error)

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByCode returns the orders filed under code, including fast-shipping
	// sub-orders (<code>-<n>), with their items.
	GetByCode(ctx context.Context, code string) ([]model.Order, error)
}

// ReservationRepository defines the interface for stock reservations.
type ReservationRepository interface {
	// Create holds stock for every item of reservation or for none of them.
	// A product that cannot cover its quantity yields *model.StockUnavailableError.
	Create(ctx context.Context, reservation *model.Reservation) error

	// Get retrieves a reservation with its items. Returns nil when absent.
	Get(ctx context.Context, id string) (*model.Reservation, error)

	// Transition moves held items to status (confirmed or released) and
	// adjusts the product counters in the same statement. Empty productIDs
	// selects every held item. It returns the number of items moved.
	Transition(ctx context.Context, id string, status model.ReservationStatus, productIDs []string) (int, error)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
