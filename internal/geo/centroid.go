package geo

import (
	"errors"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"

	"github.com/couchcryptid/md-overdose-map/internal/domain"
)

// ErrEmptyGeometry is returned when a centroid is requested for a boundary
// without usable rings.
var ErrEmptyGeometry = errors.New("geometry has no rings")

// Centroid returns the area-weighted centroid of every polygon in the
// boundaries, computed on the sphere. Holes subtract their area.
func Centroid(boundaries ...domain.Boundary) (domain.Coord, error) {
	var sum r3.Vector
	var rings int
	for _, b := range boundaries {
		for _, poly := range b.Polygons {
			for i, ring := range poly {
				loop := toLoop(ring)
				if loop == nil {
					continue
				}
				c := loop.Centroid().Vector
				if i == 0 {
					sum = sum.Add(c)
				} else {
					sum = sum.Sub(c)
				}
				rings++
			}
		}
	}
	if rings == 0 {
		return domain.Coord{}, ErrEmptyGeometry
	}
	if sum.Norm() == 0 {
		return boundsCenter(boundaries), nil
	}

	ll := s2.LatLngFromPoint(s2.Point{Vector: sum.Normalize()})
	return domain.Coord{Lon: ll.Lng.Degrees(), Lat: ll.Lat.Degrees()}, nil
}

// toLoop converts a ring into a normalized s2 loop, dropping the closing
// vertex and consecutive duplicates. Rings that collapse return nil.
func toLoop(r domain.Ring) *s2.Loop {
	pts := make([]s2.Point, 0, len(r))
	for i, c := range r {
		if i > 0 && c == r[i-1] {
			continue
		}
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon)))
	}
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return nil
	}
	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop
}

func boundsCenter(boundaries []domain.Boundary) domain.Coord {
	first := true
	var minLon, maxLon, minLat, maxLat float64
	for _, b := range boundaries {
		for _, poly := range b.Polygons {
			for _, ring := range poly {
				for _, c := range ring {
					if first {
						minLon, maxLon, minLat, maxLat = c.Lon, c.Lon, c.Lat, c.Lat
						first = false
						continue
					}
					minLon = min(minLon, c.Lon)
					maxLon = max(maxLon, c.Lon)
					minLat = min(minLat, c.Lat)
					maxLat = max(maxLat, c.Lat)
				}
			}
		}
	}
	return domain.Coord{Lon: (minLon + maxLon) / 2, Lat: (minLat + maxLat) / 2}
}
