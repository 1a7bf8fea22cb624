package delivery

import (
	"context"

	"github.com/shopspring/decimal"
)

// Quoter prices delivery for a customer city.
type Quoter interface {
	// Quote returns the delivery cost for city. The second return value is
	// false when neither the rate table nor a default covers the city.
	Quote(city string) (decimal.Decimal, bool)
}

// RateTable maps normalized city names to delivery costs.
type RateTable interface {
	// Lookup returns the rate for a city.
	Lookup(city string) (decimal.Decimal, bool)

	// Size returns the number of cities in the table.
	Size() int
}

// Loader defines the interface for loading delivery rate files.
type Loader interface {
	// Load reads a rate file ("city,cost" per line, optionally gzipped) and returns a RateTable.
	Load(ctx context.Context, path string) (RateTable, error)
}
