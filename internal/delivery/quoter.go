package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// QuoterConfig holds configuration for the rate-table quoter.
type QuoterConfig struct {
	// FilePaths lists rate files; entries in later files override earlier ones.
	FilePaths []string

	// DefaultCost applies to cities missing from every file. Nil means no default.
	DefaultCost *decimal.Decimal
}

// tableQuoter implements Quoter over a merged rate table.
type tableQuoter struct {
	table       *mapRateTable
	defaultCost *decimal.Decimal
	logger      zerolog.Logger
}

// NewQuoter loads every configured rate file concurrently and merges them in
// configuration order.
func NewQuoter(ctx context.Context, cfg QuoterConfig, loader Loader, logger zerolog.Logger) (Quoter, error) {
	logger = logger.With().Str("component", "delivery-quoter").Logger()

	type loadResult struct {
		index int
		table RateTable
		err   error
	}

	resultChan := make(chan loadResult, len(cfg.FilePaths))
	var wg sync.WaitGroup

	for i, path := range cfg.FilePaths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			table, err := loader.Load(ctx, path)
			resultChan <- loadResult{index: index, table: table, err: err}
		}(i, path)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(cfg.FilePaths))
	for result := range resultChan {
		results[result.index] = result
	}

	merged := newMapRateTable(64)
	for i, result := range results {
		if result.err != nil {
			logger.Error().
				Err(result.err).
				Str("file", cfg.FilePaths[i]).
				Msg("failed to load delivery rate file")
			return nil, fmt.Errorf("failed to load delivery rate file %s: %w", cfg.FilePaths[i], result.err)
		}
		merged.merge(result.table)
	}

	logger.Info().
		Int("file_count", len(cfg.FilePaths)).
		Int("cities", merged.Size()).
		Bool("has_default", cfg.DefaultCost != nil).
		Msg("delivery quoter initialised")

	return &tableQuoter{
		table:       merged,
		defaultCost: cfg.DefaultCost,
		logger:      logger,
	}, nil
}

// Quote returns the delivery cost for city.
func (q *tableQuoter) Quote(city string) (decimal.Decimal, bool) {
	if rate, ok := q.table.Lookup(city); ok {
		return rate, true
	}
	if q.defaultCost != nil {
		q.logger.Debug().Str("city", city).Msg("city not in rate table, using default cost")
		return *q.defaultCost, true
	}
	return decimal.Zero, false
}

// ParseDefaultCost parses an optional default delivery cost.
func ParseDefaultCost(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	cost, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid default delivery cost %q: %w", raw, err)
	}
	if cost.IsNegative() {
		return nil, fmt.Errorf("default delivery cost cannot be negative")
	}
	return &cost, nil
}
