// Command seeddb builds a substances database from a CSV export with the
// columns id, name, county, year, deaths. An empty deaths cell is stored
// as zero.
//
// Usage:
//
//	go run ./cmd/seeddb -csv data/substances.csv -db data/substances.db
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/couchcryptid/md-overdose-map/internal/adapter/sqlite"
	"github.com/couchcryptid/md-overdose-map/internal/domain"
)

var requiredColumns = []string{"id", "name", "county", "year", "deaths"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "CSV export of the substances table")
	dbPath := flag.String("db", "", "database file to create")
	flag.Parse()

	if *csvPath == "" || *dbPath == "" {
		flag.Usage()
		return errors.New("missing required flags: -csv, -db")
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	records, err := parseRecords(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", *csvPath, err)
	}

	ctx := context.Background()
	store, err := sqlite.Create(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Seed(ctx, records); err != nil {
		return err
	}

	log.Printf("wrote %s records to %s", humanize.Comma(int64(len(records))), *dbPath)
	return nil
}

// parseRecords reads the CSV header, locates the required columns by name,
// and converts every data row.
func parseRecords(r io.Reader) ([]domain.OverdoseRecord, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("no data rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := colIdx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	records := make([]domain.OverdoseRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		id, err := strconv.ParseInt(get(row, colIdx, "id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: id: %w", line, err)
		}
		year, err := strconv.Atoi(get(row, colIdx, "year"))
		if err != nil {
			return nil, fmt.Errorf("line %d: year: %w", line, err)
		}
		var deaths int64
		if v := get(row, colIdx, "deaths"); v != "" {
			deaths, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: deaths: %w", line, err)
			}
		}
		records = append(records, domain.OverdoseRecord{
			ID:        id,
			Substance: get(row, colIdx, "name"),
			County:    get(row, colIdx, "county"),
			Year:      year,
			Deaths:    deaths,
		})
	}
	return records, nil
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
