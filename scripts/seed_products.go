//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"

	"storefront-orders/internal/config"
	"storefront-orders/internal/database"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type product struct {
	id     string
	name   string
	price  string
	seller string
	stock  int
}

// Applies the schema and upserts a small catalogue spread over two sellers,
// enough to exercise both unified and fast shipping.
func main() {
	_ = godotenv.Load()

	if os.Getenv("API_KEY") == "" {
		os.Setenv("API_KEY", "unused")
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database, zerolog.Nop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	products := []product{
		{"1", "Cotton Shirt", "15000", "Store A", 20},
		{"2", "Denim Jacket", "45000", "Store A", 5},
		{"3", "Leather Wallet", "12000", "Store B", 10},
		{"4", "Sunglasses", "18000", "Store B", 0},
		{"5", "Scarf", "8000", "Store C", 50},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (id, name, price, seller_name, stock)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, price = EXCLUDED.price,
			    seller_name = EXCLUDED.seller_name, stock = EXCLUDED.stock`,
			p.id, p.name, p.price, p.seller, p.stock)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to seed product %s: %v\n", p.id, err)
			os.Exit(1)
		}
		fmt.Printf("Seeded product %s (%s, stock %d)\n", p.id, p.seller, p.stock)
	}
}
