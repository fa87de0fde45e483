// Package sqlite reads overdose death counts from the pre-built substances
// database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	// Registers the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/md-overdose-map/internal/domain"
)

const (
	queryByYearAndName = `SELECT id, name, county, year, deaths
FROM substances
WHERE year = ? AND name = ?`

	queryCoverage = `SELECT year, name, COUNT(*)
FROM substances
GROUP BY year, name
ORDER BY year, name`

	createTable = `CREATE TABLE IF NOT EXISTS substances (
	id     INTEGER PRIMARY KEY,
	name   TEXT    NOT NULL,
	county TEXT    NOT NULL,
	year   INTEGER NOT NULL,
	deaths INTEGER
)`

	insertRecord = `INSERT INTO substances (id, name, county, year, deaths) VALUES (?, ?, ?, ?, ?)`
)

// Store is a handle on the substances database.
type Store struct {
	db *sql.DB
}

// Open connects to the database file at path in read-only mode. The file
// must already exist.
func Open(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open overdose database: %w", err)
	}
	return open(ctx, fmt.Sprintf("file:%s?mode=ro", path))
}

// Create opens path read-write, creating the file and the substances table
// when missing. Used by tooling that builds the database.
func Create(ctx context.Context, path string) (*Store, error) {
	s, err := open(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("create substances table: %w", err)
	}
	return s, nil
}

func open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open overdose database: %w", err)
	}
	// A single connection keeps file handles predictable for a one-shot run.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping overdose database: %w", err)
	}
	return &Store{db: db}, nil
}

// Query returns every row whose year and substance name equal the given
// values, in storage order.
func (s *Store) Query(ctx context.Context, year int, substance string) ([]domain.OverdoseRecord, error) {
	rows, err := s.db.QueryContext(ctx, queryByYearAndName, year, substance)
	if err != nil {
		return nil, fmt.Errorf("query substances: %w", err)
	}
	defer rows.Close()

	var records []domain.OverdoseRecord
	for rows.Next() {
		var (
			rec    domain.OverdoseRecord
			deaths sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.Substance, &rec.County, &rec.Year, &deaths); err != nil {
			return nil, fmt.Errorf("scan substances row: %w", err)
		}
		rec.Deaths = deaths.Int64 // NULL reads as zero
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate substances: %w", err)
	}
	return records, nil
}

// CoverageRow counts rows for one (year, substance) pair.
type CoverageRow struct {
	Year      int
	Substance string
	Rows      int
}

// Coverage returns row counts for every (year, substance) pair present.
func (s *Store) Coverage(ctx context.Context) ([]CoverageRow, error) {
	rows, err := s.db.QueryContext(ctx, queryCoverage)
	if err != nil {
		return nil, fmt.Errorf("query coverage: %w", err)
	}
	defer rows.Close()

	var out []CoverageRow
	for rows.Next() {
		var c CoverageRow
		if err := rows.Scan(&c.Year, &c.Substance, &c.Rows); err != nil {
			return nil, fmt.Errorf("scan coverage row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Seed inserts records in a single transaction.
func (s *Store) Seed(ctx context.Context, records []domain.OverdoseRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Substance, r.County, r.Year, r.Deaths); err != nil {
			return fmt.Errorf("insert record %d: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
