// Package shapefile reads ESRI shapefile boundaries (.shp with its .dbf
// attribute table) into domain boundaries.
package shapefile

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	shp "github.com/jonas-p/go-shp"

	"github.com/couchcryptid/md-overdose-map/internal/domain"
	"github.com/couchcryptid/md-overdose-map/internal/geo"
)

// ErrProjectedCoordinates is returned for shapes whose coordinates are not
// WGS-84 longitude/latitude, which the web map cannot display unprojected.
var ErrProjectedCoordinates = errors.New("coordinates are not longitude/latitude")

// ErrMissingAttributeTable is returned when the .dbf beside a .shp cannot
// be read.
var ErrMissingAttributeTable = errors.New("missing attribute table")

// Load reads every polygon record of the shapefile at path together with
// its attributes. Null shapes are skipped.
func Load(path string) ([]domain.Boundary, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer r.Close()

	dbf, err := os.Open(strings.TrimSuffix(path, filepath.Ext(path)) + ".dbf")
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w: %w", path, ErrMissingAttributeTable, err)
	}
	dbf.Close()

	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}

	var out []domain.Boundary
	for r.Next() {
		n, shape := r.Shape()

		rings, err := shapeRings(shape)
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %w", path, n, err)
		}
		if rings == nil {
			continue
		}

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			attrs[name] = strings.TrimSpace(strings.Trim(r.ReadAttribute(n, i), "\x00"))
		}

		out = append(out, domain.Boundary{
			Attributes: attrs,
			Polygons:   geo.AssemblePolygons(rings),
		})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", path, err)
	}
	return out, nil
}

// shapeRings splits a polygon shape into its rings. It returns nil rings
// for null shapes.
func shapeRings(s shp.Shape) ([]domain.Ring, error) {
	switch p := s.(type) {
	case *shp.Null:
		return nil, nil
	case *shp.Polygon:
		return splitParts(p.Parts, p.Points)
	case *shp.PolygonZ:
		return splitParts(p.Parts, p.Points)
	case *shp.PolygonM:
		return splitParts(p.Parts, p.Points)
	default:
		return nil, fmt.Errorf("unsupported shape type %T", s)
	}
}

func splitParts(parts []int32, points []shp.Point) ([]domain.Ring, error) {
	rings := make([]domain.Ring, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			return nil, fmt.Errorf("part %d has invalid bounds [%d, %d)", i, start, end)
		}

		ring := make(domain.Ring, 0, end-start)
		for _, pt := range points[start:end] {
			if math.Abs(pt.X) > 180 || math.Abs(pt.Y) > 90 {
				return nil, fmt.Errorf("%w: (%g, %g)", ErrProjectedCoordinates, pt.X, pt.Y)
			}
			ring = append(ring, domain.Coord{Lon: pt.X, Lat: pt.Y})
		}
		rings = append(rings, ring)
	}
	return rings, nil
}
