package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the storage layout of the order pipeline. The UNIQUE constraint
// on orders.idempotency_key is the only authoritative duplicate guard, and
// the CHECK constraints on products keep stock counters non-negative.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	price NUMERIC(14,2) NOT NULL CHECK (price >= 0),
	seller_name TEXT NOT NULL DEFAULT 'غير محدد',
	stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	reserved_stock INTEGER NOT NULL DEFAULT 0 CHECK (reserved_stock >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT products_reserved_within_stock CHECK (reserved_stock <= stock)
);

CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	order_code TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	customer_phone TEXT NOT NULL,
	customer_address TEXT NOT NULL DEFAULT '',
	customer_city TEXT NOT NULL DEFAULT '',
	customer_notes TEXT NOT NULL DEFAULT '',
	subtotal NUMERIC(14,2) NOT NULL CHECK (subtotal >= 0),
	delivery_cost NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (delivery_cost >= 0),
	total_amount NUMERIC(14,2) NOT NULL CHECK (total_amount >= 0),
	discounted_price NUMERIC(14,2),
	order_status TEXT NOT NULL DEFAULT 'pending',
	seller_name TEXT NOT NULL,
	idempotency_key TEXT NOT NULL,
	shipping_type TEXT NOT NULL CHECK (shipping_type IN ('unified', 'fast')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT orders_idempotency_key_key UNIQUE (idempotency_key)
);
CREATE INDEX IF NOT EXISTS idx_orders_order_code ON orders(order_code);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC);

CREATE TABLE IF NOT EXISTS order_items (
	id UUID PRIMARY KEY,
	order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id TEXT NOT NULL,
	product_name TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	price NUMERIC(14,2) NOT NULL CHECK (price >= 0),
	discounted_price NUMERIC(14,2),
	seller_name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);

CREATE TABLE IF NOT EXISTS stock_reservations (
	id TEXT PRIMARY KEY,
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS stock_reservation_items (
	reservation_id TEXT NOT NULL REFERENCES stock_reservations(id) ON DELETE CASCADE,
	product_id TEXT NOT NULL REFERENCES products(id),
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	status TEXT NOT NULL DEFAULT 'reserved' CHECK (status IN ('reserved', 'confirmed', 'released')),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (reservation_id, product_id)
);
CREATE INDEX IF NOT EXISTS idx_stock_reservation_items_held
	ON stock_reservation_items(reservation_id) WHERE status = 'reserved';
`

// EnsureSchema creates any missing tables and indexes. It is safe to run on
// every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
