package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront-orders/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the order schema applied.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := database.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedProducts inserts a catalogue spread over two sellers. P004 is out of stock.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	products := []struct {
		id     string
		name   string
		price  string
		seller string
		stock  int
	}{
		{"P001", "Test Product 1", "10000", "Store A", 10},
		{"P002", "Test Product 2", "20000", "Store A", 5},
		{"P003", "Test Product 3", "30000", "Store B", 3},
		{"P004", "Test Product 4", "40000", "Store B", 0},
		{"P005", "Test Product 5", "50000", "Store C", 1},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx,
			"INSERT INTO products (id, name, price, seller_name, stock) VALUES ($1, $2, $3::numeric, $4, $5)",
			p.id, p.name, p.price, p.seller, p.stock,
		)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", p.id, err)
		}
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"stock_reservation_items", "stock_reservations", "order_items", "orders", "products"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// Counters returns a product's stock and reserved_stock.
func Counters(t *testing.T, pool *pgxpool.Pool, productID string) (stock, reserved int) {
	t.Helper()

	err := pool.QueryRow(context.Background(),
		"SELECT stock, reserved_stock FROM products WHERE id = $1", productID,
	).Scan(&stock, &reserved)
	if err != nil {
		t.Fatalf("failed to read counters for %s: %v", productID, err)
	}
	return stock, reserved
}

// CountOrders returns how many orders carry idempotencyKey.
func CountOrders(t *testing.T, pool *pgxpool.Pool, idempotencyKey string) int {
	t.Helper()

	var n int
	err := pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM orders WHERE idempotency_key = $1", idempotencyKey,
	).Scan(&n)
	if err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	return n
}
