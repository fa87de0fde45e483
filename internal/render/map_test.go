package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/md-overdose-map/internal/domain"
)

func sampleCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewPolygonFeature([][][]float64{{
		{-79.0, 39.0}, {-78.5, 39.0}, {-78.5, 39.5}, {-79.0, 39.5}, {-79.0, 39.0},
	}})
	f.SetProperty("substance", "Alcohol")
	f.SetProperty("county", "Allegany")
	f.SetProperty("year", 2013)
	f.SetProperty("deaths", int64(2))
	fc.AddFeature(f)

	g := geojson.NewPolygonFeature([][][]float64{{
		{-76.7, 38.9}, {-76.6, 38.9}, {-76.6, 39.0}, {-76.7, 39.0}, {-76.7, 38.9},
	}})
	g.SetProperty("substance", "Alcohol")
	g.SetProperty("county", "Prince George's")
	g.SetProperty("year", 2013)
	g.SetProperty("deaths", int64(9))
	fc.AddFeature(g)
	return fc
}

func renderString(t *testing.T, m *Map) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, m.Render(&buf))
	return buf.String()
}

func TestRender_Document(t *testing.T) {
	m := NewMap(domain.Coord{Lon: -77.27, Lat: 38.82})
	m.SetTitle("Maryland Counties' 2013 Alcohol Accidental Overdoses")
	require.NoError(t, m.AddLayer(sampleCollection()))
	m.AddMinimap()

	out := renderString(t, m)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>Maryland Counties&#39; 2013 Alcohol Accidental Overdoses</title>")
	assert.Contains(t, out, DefaultAssets.LeafletJS)
	assert.Contains(t, out, DefaultAssets.MiniMapJS)
	assert.Contains(t, out, "dark_all")
	assert.Contains(t, out, "L.Control.MiniMap")
	assert.Contains(t, out, "38.82")
	assert.Contains(t, out, "-77.27")
	assert.Contains(t, out, "zoom:  8 ")
	assert.Contains(t, out, `"FeatureCollection"`)
	assert.Contains(t, out, "Allegany")
}

func TestRender_WithoutMinimap(t *testing.T) {
	m := NewMap(domain.Coord{Lon: -77, Lat: 39})
	require.NoError(t, m.AddLayer(sampleCollection()))

	out := renderString(t, m)
	assert.NotContains(t, out, "L.Control.MiniMap")
	assert.NotContains(t, out, DefaultAssets.MiniMapJS)
}

func TestRender_TooltipConfiguration(t *testing.T) {
	m := NewMap(domain.Coord{Lon: -77, Lat: 39})
	require.NoError(t, m.AddLayer(sampleCollection()))

	out := renderString(t, m)
	assert.Contains(t, out, `["substance","county","year","deaths"]`)
	assert.Contains(t, out, "sticky:  false ")
	assert.Contains(t, out, `"Counties' Overdoses"`)
}

func TestRender_EscapesFeatureProperties(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewPointFeature([]float64{-77, 39})
	f.SetProperty("county", "</script><script>alert(1)</script>")
	fc.AddFeature(f)

	m := NewMap(domain.Coord{Lon: -77, Lat: 39})
	require.NoError(t, m.AddLayer(fc))

	out := renderString(t, m)
	assert.NotContains(t, out, "</script><script>alert(1)")
	assert.Contains(t, out, `</script>`)
}

func TestRender_GeneratedAtUsesClock(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2019, 3, 4, 5, 6, 7, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })

	out := renderString(t, NewMap(domain.Coord{Lon: -77, Lat: 39}))
	assert.Contains(t, out, "Generated Mon, 04 Mar 2019 05:06:07 UTC")
}

func TestSave_WritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2013_alcohol.html")

	m := NewMap(domain.Coord{Lon: -77, Lat: 39})
	m.SetTitle("title")
	require.NoError(t, m.AddLayer(sampleCollection()))
	require.NoError(t, m.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>title</title>")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.html")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	m := NewMap(domain.Coord{Lon: -77, Lat: 39})
	m.SetTitle("fresh")
	require.NoError(t, m.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fresh")
	assert.NotContains(t, string(data), "stale")
}

func TestSave_MissingDirectory(t *testing.T) {
	m := NewMap(domain.Coord{Lon: -77, Lat: 39})
	err := m.Save(filepath.Join(t.TempDir(), "missing", "map.html"))
	require.Error(t, err)
}

func TestMaxProperty(t *testing.T) {
	assert.InDelta(t, 9.0, maxProperty(sampleCollection(), "deaths"), 1e-9)
	assert.Zero(t, maxProperty(geojson.NewFeatureCollection(), "deaths"))
}
