package shapefile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	shp "github.com/jonas-p/go-shp"

	"github.com/couchcryptid/md-overdose-map/internal/domain"
	"github.com/couchcryptid/md-overdose-map/internal/geo"
)

// Write stores boundaries as a polygon shapefile at path, with one string
// DBF field per attribute name found on any boundary. Rings are written in
// shapefile winding (outer clockwise, holes counter-clockwise).
func Write(path string, boundaries []domain.Boundary) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return fmt.Errorf("create shapefile %s: %w", path, err)
	}
	if err := writeRecords(w, boundaries); err != nil {
		w.Close()
		return err
	}
	w.Close()
	return renameAttributeTable(path)
}

func writeRecords(w *shp.Writer, boundaries []domain.Boundary) error {
	names := attributeNames(boundaries)
	fields := make([]shp.Field, len(names))
	for i, name := range names {
		fields[i] = shp.StringField(name, 64)
	}
	if err := w.SetFields(fields); err != nil {
		return fmt.Errorf("set fields: %w", err)
	}

	for _, b := range boundaries {
		var parts [][]shp.Point
		for _, poly := range b.Polygons {
			for i, ring := range poly {
				outer := i == 0
				if (geo.SignedArea(ring) > 0) == outer {
					ring = geo.Reversed(ring)
				}
				pts := make([]shp.Point, len(ring))
				for j, c := range ring {
					pts[j] = shp.Point{X: c.Lon, Y: c.Lat}
				}
				parts = append(parts, pts)
			}
		}

		polygon := shp.Polygon(*shp.NewPolyLine(parts))
		row := int(w.Write(&polygon))
		for i, name := range names {
			if err := w.WriteAttribute(row, i, b.Attributes[name]); err != nil {
				return fmt.Errorf("write attribute %s: %w", name, err)
			}
		}
	}
	return nil
}

// renameAttributeTable moves the DBF that go-shp creates as "<base>dbf"
// to "<base>.dbf", where readers look for it.
func renameAttributeTable(path string) error {
	base := path
	if strings.HasSuffix(strings.ToLower(path), ".shp") {
		base = path[:len(path)-len(".shp")]
	}
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return fmt.Errorf("place attribute table for %s: %w", path, err)
	}
	return nil
}

func attributeNames(boundaries []domain.Boundary) []string {
	seen := make(map[string]bool)
	var names []string
	for _, b := range boundaries {
		for k := range b.Attributes {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}
