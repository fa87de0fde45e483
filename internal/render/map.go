// Package render builds a self-contained Leaflet web map: dark basemap,
// one or more GeoJSON overlays with hover tooltips, and an optional
// minimap.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/md-overdose-map/internal/domain"
)

// DefaultZoom frames the whole state at typical screen sizes.
const DefaultZoom = 8

// LayerName labels the county overlay.
const LayerName = "Counties' Overdoses"

// TooltipFields are shown, in order, when hovering over a county.
var TooltipFields = []string{"substance", "county", "year", "deaths"}

// Palette is a sequential yellow-to-red ramp used to shade counties by deaths.
var Palette = []string{"#ffffb2", "#fed976", "#feb24c", "#fd8d3c", "#f03b20", "#bd0026"}

// Tiles describes a raster basemap.
type Tiles struct {
	URL         string
	Attribution string
	Subdomains  string
	MaxZoom     int
}

// DarkMatter is the CartoDB dark basemap.
var DarkMatter = Tiles{
	URL:         "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
	Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
	Subdomains:  "abcd",
	MaxZoom:     20,
}

// miniMapTiles is the overview basemap inside the minimap control.
const miniMapTiles = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"

// Assets are the script and stylesheet URLs the page loads.
type Assets struct {
	LeafletCSS string
	LeafletJS  string
	MiniMapCSS string
	MiniMapJS  string
}

// DefaultAssets pins Leaflet and Leaflet-MiniMap CDN builds.
var DefaultAssets = Assets{
	LeafletCSS: "https://unpkg.com/leaflet@1.9.4/dist/leaflet.css",
	LeafletJS:  "https://unpkg.com/leaflet@1.9.4/dist/leaflet.js",
	MiniMapCSS: "https://cdnjs.cloudflare.com/ajax/libs/leaflet-minimap/3.6.1/Control.MiniMap.min.css",
	MiniMapJS:  "https://cdnjs.cloudflare.com/ajax/libs/leaflet-minimap/3.6.1/Control.MiniMap.min.js",
}

type layer struct {
	Name       string
	Data       template.JS
	Fields     []string
	Labels     bool
	Sticky     bool
	ValueField string
	MaxValue   float64
	Palette    []string
}

// Map accumulates the pieces of a web map until it is saved.
type Map struct {
	center  domain.Coord
	zoom    int
	tiles   Tiles
	assets  Assets
	title   string
	layers  []layer
	minimap bool
}

// NewMap creates a map centered on center with the default zoom and the
// dark basemap.
func NewMap(center domain.Coord) *Map {
	return &Map{
		center: center,
		zoom:   DefaultZoom,
		tiles:  DarkMatter,
		assets: DefaultAssets,
	}
}

// SetTitle sets the document title.
func (m *Map) SetTitle(title string) {
	m.title = title
}

// AddLayer overlays fc with a labelled, non-sticky tooltip of
// TooltipFields, shading features by their "deaths" property.
func (m *Map) AddLayer(fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal layer: %w", err)
	}
	m.layers = append(m.layers, layer{
		Name:       LayerName,
		Data:       template.JS(data),
		Fields:     TooltipFields,
		Labels:     true,
		Sticky:     false,
		ValueField: "deaths",
		MaxValue:   maxProperty(fc, "deaths"),
		Palette:    Palette,
	})
	return nil
}

// AddMinimap attaches an overview map control.
func (m *Map) AddMinimap() {
	m.minimap = true
}

type page struct {
	Title        string
	Center       domain.Coord
	Zoom         int
	Tiles        Tiles
	Assets       Assets
	Layers       []layer
	Minimap      bool
	MiniMapTiles string
	GeneratedAt  string
}

// Render writes the HTML document to w.
func (m *Map) Render(w io.Writer) error {
	p := page{
		Title:        m.title,
		Center:       m.center,
		Zoom:         m.zoom,
		Tiles:        m.tiles,
		Assets:       m.assets,
		Layers:       m.layers,
		Minimap:      m.minimap,
		MiniMapTiles: miniMapTiles,
		GeneratedAt:  "Generated " + domain.Now().Format(time.RFC1123),
	}
	if err := pageTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("render map: %w", err)
	}
	return nil
}

// Save renders the map to path. The file is written to a temporary name
// first so readers never see a partial page.
func (m *Map) Save(path string) error {
	var buf bytes.Buffer
	if err := m.Render(&buf); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".map-*.html")
	if err != nil {
		return fmt.Errorf("create temp map: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write map: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close map: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod map: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename map: %w", err)
	}
	return nil
}

// maxProperty returns the largest numeric value of key across features.
func maxProperty(fc *geojson.FeatureCollection, key string) float64 {
	var out float64
	for _, f := range fc.Features {
		switch v := f.Properties[key].(type) {
		case int64:
			out = max(out, float64(v))
		case int:
			out = max(out, float64(v))
		case float64:
			out = max(out, v)
		case json.Number:
			if n, err := v.Float64(); err == nil {
				out = max(out, n)
			}
		}
	}
	return out
}
