// Package geo joins county boundaries with overdose counts and computes the
// geometry the map is centered on.
package geo

import (
	"errors"
	"fmt"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/md-overdose-map/internal/domain"
)

// JoinKey is the attribute shared by boundaries and records.
const JoinKey = "county"

// ErrNoFeatures is returned when RequireFeatures is set and the join is empty.
var ErrNoFeatures = errors.New("join produced no features")

// MergeOptions adjusts the join.
type MergeOptions struct {
	// KeepUnmatched turns the inner join into a left join: boundaries with
	// no record are kept with zero deaths for Request.
	KeepUnmatched bool
	// Request fills substance and year on unmatched features.
	Request domain.MapRequest
	// RequireFeatures makes an empty result an error.
	RequireFeatures bool
}

// ToFeatureCollection joins boundaries and records on the county name and
// returns one feature per matching pair, in boundary order. Boundary
// attributes are copied first, so record fields win on a name clash.
func ToFeatureCollection(boundaries []domain.Boundary, records []domain.OverdoseRecord, opts MergeOptions) (*geojson.FeatureCollection, error) {
	byCounty := make(map[string][]domain.OverdoseRecord, len(records))
	for _, r := range records {
		byCounty[r.County] = append(byCounty[r.County], r)
	}

	fc := geojson.NewFeatureCollection()
	for i, b := range boundaries {
		county, ok := b.Attribute(JoinKey)
		if !ok {
			return nil, fmt.Errorf("boundary %d has no %q attribute", i, JoinKey)
		}
		geom, err := Geometry(b)
		if err != nil {
			return nil, fmt.Errorf("boundary %q: %w", county, err)
		}

		matches := byCounty[county]
		if len(matches) == 0 {
			if !opts.KeepUnmatched {
				continue
			}
			matches = []domain.OverdoseRecord{{
				Substance: opts.Request.Substance,
				County:    county,
				Year:      opts.Request.Year,
			}}
		}

		for _, rec := range matches {
			f := geojson.NewFeature(geom)
			for k, v := range b.Attributes {
				f.SetProperty(k, v)
			}
			setRecordProperties(f, rec)
			fc.AddFeature(f)
		}
	}

	if opts.RequireFeatures && len(fc.Features) == 0 {
		return nil, ErrNoFeatures
	}
	return fc, nil
}

func setRecordProperties(f *geojson.Feature, r domain.OverdoseRecord) {
	f.SetProperty("substanceID", r.ID)
	f.SetProperty("substance", r.Substance)
	f.SetProperty(JoinKey, r.County)
	f.SetProperty("year", r.Year)
	f.SetProperty("deaths", r.Deaths)
}

// Geometry converts a boundary's polygons into a GeoJSON Polygon or
// MultiPolygon.
func Geometry(b domain.Boundary) (*geojson.Geometry, error) {
	polys := make([][][][]float64, 0, len(b.Polygons))
	for _, p := range b.Polygons {
		rings := make([][][]float64, 0, len(p))
		for _, r := range p {
			coords := make([][]float64, len(r))
			for i, c := range r {
				coords[i] = []float64{c.Lon, c.Lat}
			}
			rings = append(rings, coords)
		}
		if len(rings) > 0 {
			polys = append(polys, rings)
		}
	}

	switch len(polys) {
	case 0:
		return nil, ErrEmptyGeometry
	case 1:
		return geojson.NewPolygonGeometry(polys[0]), nil
	default:
		return geojson.NewMultiPolygonGeometry(polys...), nil
	}
}
