//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"

	"storefront-orders/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

// Checks that the configured database is reachable and reports which of the
// order pipeline's tables exist.
func main() {
	_ = godotenv.Load()

	// Only the database settings matter here.
	if os.Getenv("API_KEY") == "" {
		os.Setenv("API_KEY", "unused")
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.Database.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	var dbName string
	err = conn.QueryRow(ctx, "SELECT current_database()").Scan(&dbName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully connected to database: %s\n", dbName)

	for _, table := range []string{"products", "orders", "order_items", "stock_reservations", "stock_reservation_items"} {
		var exists bool
		err := conn.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", "public."+table).Scan(&exists)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Table check failed: %v\n", err)
			os.Exit(1)
		}
		status := "missing"
		if exists {
			status = "ok"
		}
		fmt.Printf("  - %-24s %s\n", table, status)
	}
}
