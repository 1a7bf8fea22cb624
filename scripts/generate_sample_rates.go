//go:build ignore

package main

import (
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

type rate struct {
	city string
	cost string
}

// Generates sample delivery rate files. The override file is loaded after the
// base file, so its Baghdad rate wins:
//
//	DELIVERY_RATE_FILES=data/rates/base.csv.gz,data/rates/override.csv
func main() {
	dataDir := "data/rates"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	files := map[string][]rate{
		"base.csv.gz": {
			{"بغداد", "5000"},
			{"البصرة", "6000"},
			{"أربيل", "6000"},
			{"الموصل", "6000"},
			{"النجف", "5500"},
			{"كربلاء", "5500"},
			{"السليمانية", "7000"},
			{"محافظات أخرى", "8000"},
		},
		"override.csv": {
			{"بغداد", "3000"},
		},
	}

	for filename, rates := range files {
		filePath := filepath.Join(dataDir, filename)

		if err := createRateFile(filePath, rates); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d cities\n", filePath, len(rates))
	}
}

func createRateFile(filePath string, rates []rate) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	var w io.Writer = file
	if strings.HasSuffix(filePath, ".gz") {
		gzipWriter := gzip.NewWriter(file)
		defer gzipWriter.Close()
		w = gzipWriter
	}

	if _, err := fmt.Fprintln(w, "city,cost"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rates {
		if _, err := fmt.Fprintf(w, "%s,%s\n", r.city, r.cost); err != nil {
			return fmt.Errorf("failed to write rate: %w", err)
		}
	}

	return nil
}
