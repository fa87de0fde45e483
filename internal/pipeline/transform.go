package pipeline

import (
	"fmt"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/md-overdose-map/internal/config"
	"github.com/couchcryptid/md-overdose-map/internal/domain"
	"github.com/couchcryptid/md-overdose-map/internal/geo"
	"github.com/couchcryptid/md-overdose-map/internal/render"
)

// mapLayer is the joined county layer plus the point the map opens on.
type mapLayer struct {
	features *geojson.FeatureCollection
	center   domain.Coord
}

// buildLayer joins county boundaries with records and centers the map on
// the state outline.
func (p *Pipeline) buildLayer(req domain.MapRequest, state, counties config.Dataset, records []domain.OverdoseRecord) (*mapLayer, error) {
	countyBoundaries, err := p.loader.Load(counties.ShapefileIn(p.opts.DataDir))
	if err != nil {
		return nil, fmt.Errorf("load county boundaries: %w", err)
	}

	fc, err := geo.ToFeatureCollection(countyBoundaries, records, geo.MergeOptions{
		KeepUnmatched: p.opts.KeepUnmatched,
		Request:       req,
	})
	if err != nil {
		return nil, fmt.Errorf("join counties: %w", err)
	}

	stateBoundaries, err := p.loader.Load(state.ShapefileIn(p.opts.DataDir))
	if err != nil {
		return nil, fmt.Errorf("load state boundary: %w", err)
	}
	center, err := geo.Centroid(stateBoundaries...)
	if err != nil {
		return nil, fmt.Errorf("state centroid: %w", err)
	}

	return &mapLayer{features: fc, center: center}, nil
}

func (l *mapLayer) save(req domain.MapRequest, path string) error {
	m := render.NewMap(l.center)
	m.SetTitle(req.Title())
	if err := m.AddLayer(l.features); err != nil {
		return err
	}
	m.AddMinimap()
	return m.Save(path)
}
