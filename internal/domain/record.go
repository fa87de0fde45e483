package domain

import (
	"fmt"
	"strings"
	"time"
)

// OverdoseRecord is one row of the substances table.
type OverdoseRecord struct {
	ID        int64  `json:"substanceID"`
	Substance string `json:"substance"`
	County    string `json:"county"`
	Year      int    `json:"year"`
	Deaths    int64  `json:"deaths"`
}

// Coord is a WGS-84 longitude/latitude pair.
type Coord struct {
	Lon float64
	Lat float64
}

// Ring is a closed sequence of coordinates.
type Ring []Coord

// Polygon holds an outer ring followed by zero or more holes.
type Polygon []Ring

// Boundary is a named region loaded from a shapefile: its DBF attributes
// and its polygon parts.
type Boundary struct {
	Attributes map[string]string
	Polygons   []Polygon
}

// Attribute returns the value of the named attribute, matching the field
// name case-insensitively as DBF headers are often upper case.
func (b Boundary) Attribute(name string) (string, bool) {
	if v, ok := b.Attributes[name]; ok {
		return v, true
	}
	for k, v := range b.Attributes {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// MapRequest is the validated (year, substance) pair for a single run.
type MapRequest struct {
	Year      int
	Substance string
}

// FileName returns the deterministic output file name for the request.
func (r MapRequest) FileName() string {
	return fmt.Sprintf("%d_%s.html", r.Year, strings.ToLower(r.Substance))
}

// Title returns the page title of the rendered map.
func (r MapRequest) Title() string {
	return fmt.Sprintf("Maryland Counties' %d %s Accidental Overdoses", r.Year, r.Substance)
}

// Key identifies the request in published events.
func (r MapRequest) Key() string {
	return strings.TrimSuffix(r.FileName(), ".html")
}

// MapGenerated is published after a map has been written to disk.
type MapGenerated struct {
	RunID       string    `json:"run_id"`
	Year        int       `json:"year"`
	Substance   string    `json:"substance"`
	Path        string    `json:"path"`
	Records     int       `json:"records"`
	Features    int       `json:"features"`
	GeneratedAt time.Time `json:"generated_at"`
}
