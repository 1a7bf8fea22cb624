package delivery

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// fileLoader implements Loader for rate files on the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based rate loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "delivery-rate-loader").Logger(),
	}
}

// Load reads a rate file and returns a RateTable. Files ending in .gz are
// decompressed first.
func (l *fileLoader) Load(ctx context.Context, path string) (RateTable, error) {
	l.logger.Info().Str("file", path).Msg("loading delivery rate file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open rate file")
		return nil, fmt.Errorf("failed to open rate file %s: %w", path, err)
	}
	defer file.Close()

	table, err := readRates(ctx, file, path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to read rate file")
		return nil, err
	}

	l.logger.Info().
		Str("file", path).
		Int("cities_loaded", table.Size()).
		Msg("delivery rate file loaded successfully")

	return table, nil
}

// readRates parses "city,cost" records. Blank lines, lines starting with '#'
// and a leading "city,cost" header are skipped.
func readRates(ctx context.Context, r io.Reader, name string) (*mapRateTable, error) {
	if strings.HasSuffix(name, ".gz") {
		gzipReader, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader for %s: %w", name, err)
		}
		defer gzipReader.Close()
		r = gzipReader
	}

	reader := csv.NewReader(bufio.NewReader(r))
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	table := newMapRateTable(64)
	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading rate file %s: %w", name, err)
		}
		line++

		if len(record) != 2 {
			return nil, fmt.Errorf("rate file %s line %d: expected city,cost", name, line)
		}

		city := strings.TrimSpace(record[0])
		rawCost := strings.TrimSpace(record[1])
		if line == 1 && strings.EqualFold(city, "city") && strings.EqualFold(rawCost, "cost") {
			continue
		}
		if city == "" {
			return nil, fmt.Errorf("rate file %s line %d: empty city", name, line)
		}

		cost, err := decimal.NewFromString(rawCost)
		if err != nil || cost.IsNegative() {
			return nil, fmt.Errorf("rate file %s line %d: invalid cost %q", name, line, rawCost)
		}

		table.Set(city, cost)
	}

	return table, nil
}
