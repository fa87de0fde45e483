package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/md-overdose-map/internal/adapter/sqlite"
	"github.com/couchcryptid/md-overdose-map/internal/domain"
)

// fullCoverage returns one row per jurisdiction for every accepted
// combination, skipping those in omit.
func fullCoverage(omit ...domain.MapRequest) []domain.OverdoseRecord {
	skip := map[domain.MapRequest]bool{}
	for _, o := range omit {
		skip[o] = true
	}
	var out []domain.OverdoseRecord
	id := int64(1)
	for year := domain.MinYear; year <= domain.MaxYear; year++ {
		for _, s := range domain.Substances {
			if skip[domain.MapRequest{Year: year, Substance: s}] {
				continue
			}
			for _, county := range domain.MarylandJurisdictions {
				out = append(out, domain.OverdoseRecord{ID: id, Substance: s, County: county, Year: year, Deaths: 1})
				id++
			}
		}
	}
	return out
}

func seed(t *testing.T, records []domain.OverdoseRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "substances.db")
	s, err := sqlite.Create(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Seed(context.Background(), records))
	require.NoError(t, s.Close())
	return path
}

func TestRun_FullCoveragePasses(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(seed(t, fullCoverage()), &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "All validations passed.")
	assert.Empty(t, stderr.String())
}

func TestRun_MissingCombinationFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(seed(t, fullCoverage(domain.MapRequest{Year: 2015, Substance: "Fentanyl"})), &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "2015 Fentanyl: no rows")
	assert.Contains(t, stdout.String(), "Validation FAILED.")
}

func TestRun_PartialCoverageWarns(t *testing.T) {
	records := fullCoverage()
	records = append(records[:1], records[2:]...)

	var stdout, stderr bytes.Buffer
	code := run(seed(t, records), &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "warning: 2013 Alcohol: 23 of 24 jurisdictions")
}

func TestRun_UnknownCountyWarns(t *testing.T) {
	records := fullCoverage()
	records[0].County = "Atlantis"

	var stdout, stderr bytes.Buffer
	code := run(seed(t, records), &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), `county "Atlantis" is not a known Maryland jurisdiction`)
}

func TestRun_MissingDatabase(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(filepath.Join(t.TempDir(), "missing.db"), &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "FATAL")
}
