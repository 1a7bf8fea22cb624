package delivery

import (
	"strings"

	"github.com/shopspring/decimal"
)

// mapRateTable implements RateTable using a map keyed by normalized city name.
type mapRateTable struct {
	rates map[string]decimal.Decimal
}

// newMapRateTable creates an empty map-based rate table.
func newMapRateTable(capacity int) *mapRateTable {
	return &mapRateTable{
		rates: make(map[string]decimal.Decimal, capacity),
	}
}

// Lookup returns the rate for a city.
func (t *mapRateTable) Lookup(city string) (decimal.Decimal, bool) {
	rate, ok := t.rates[normalizeCity(city)]
	return rate, ok
}

// Size returns the number of cities in the table.
func (t *mapRateTable) Size() int {
	return len(t.rates)
}

// Set stores the rate for a city, replacing any previous value.
func (t *mapRateTable) Set(city string, rate decimal.Decimal) {
	t.rates[normalizeCity(city)] = rate
}

// merge copies every entry of other into t.
func (t *mapRateTable) merge(other RateTable) {
	if m, ok := other.(*mapRateTable); ok {
		for city, rate := range m.rates {
			t.rates[city] = rate
		}
	}
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.Join(strings.Fields(city), " "))
}
