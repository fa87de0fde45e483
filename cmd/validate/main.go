// Command validate checks that the substances database covers every
// (year, substance) combination the map generator accepts. A combination
// with no rows fails the check; one that misses some of the 24 Maryland
// jurisdictions is reported but passes.
//
// Usage:
//
//	go run ./cmd/validate -db data/substances.db
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/couchcryptid/md-overdose-map/internal/adapter/sqlite"
	"github.com/couchcryptid/md-overdose-map/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name     string
	errors   []string
	warnings []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dbPath := flag.String("db", "data/substances.db", "substances database to check")
	flag.Parse()

	os.Exit(run(*dbPath, os.Stdout, os.Stderr))
}

func run(dbPath string, stdout, stderr io.Writer) int {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 1
	}
	defer store.Close()

	coverage, err := store.Coverage(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, "=== Overdose Database Coverage ===")
	fmt.Fprintln(stdout)

	phases := []*phase{
		validateCombinations(coverage),
		validateJurisdictions(ctx, store),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(stdout, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if len(p.errors) == 0 && len(p.warnings) == 0 {
			continue
		}
		fmt.Fprintf(stdout, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(stdout, "  [%d] %s\n", i+1, e)
		}
		for _, w := range p.warnings {
			fmt.Fprintf(stdout, "  warning: %s\n", w)
		}
	}

	if allPassed {
		fmt.Fprintln(stdout, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(stdout, "\nValidation FAILED.")
	return 1
}

// validateCombinations requires rows for every accepted year and substance.
func validateCombinations(coverage []sqlite.CoverageRow) *phase {
	p := &phase{name: "Year/substance combinations"}

	counts := make(map[domain.MapRequest]int, len(coverage))
	for _, c := range coverage {
		counts[domain.MapRequest{Year: c.Year, Substance: c.Substance}] = c.Rows
	}

	for year := domain.MinYear; year <= domain.MaxYear; year++ {
		for _, s := range domain.Substances {
			n := counts[domain.MapRequest{Year: year, Substance: s}]
			switch {
			case n == 0:
				p.errorf("%d %s: no rows", year, s)
			case n < len(domain.MarylandJurisdictions):
				p.warnf("%d %s: %d of %d jurisdictions", year, s, n, len(domain.MarylandJurisdictions))
			}
		}
	}
	return p
}

// validateJurisdictions reports county names the boundary join may not match.
func validateJurisdictions(ctx context.Context, store *sqlite.Store) *phase {
	p := &phase{name: "County names match boundaries"}

	unknown := map[string]bool{}
	for year := domain.MinYear; year <= domain.MaxYear; year++ {
		for _, s := range domain.Substances {
			records, err := store.Query(ctx, year, s)
			if err != nil {
				p.errorf("%d %s: %v", year, s, err)
				continue
			}
			for _, r := range records {
				if !slices.Contains(domain.MarylandJurisdictions, r.County) {
					unknown[r.County] = true
				}
			}
		}
	}

	names := make([]string, 0, len(unknown))
	for name := range unknown {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		p.warnf("county %q is not a known Maryland jurisdiction", name)
	}
	return p
}
