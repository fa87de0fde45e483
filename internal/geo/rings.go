package geo

import "github.com/couchcryptid/md-overdose-map/internal/domain"

// SignedArea returns the planar shoelace area of r in squared degrees:
// positive for counter-clockwise rings, negative for clockwise ones.
func SignedArea(r domain.Ring) float64 {
	if len(r) < 3 {
		return 0
	}
	var sum float64
	for i := range r {
		a := r[i]
		b := r[(i+1)%len(r)]
		sum += a.Lon*b.Lat - b.Lon*a.Lat
	}
	return sum / 2
}

// RingContains reports whether p lies inside r using ray casting. Points on
// the boundary may fall either way.
func RingContains(r domain.Ring, p domain.Coord) bool {
	inside := false
	for i, j := 0, len(r)-1; i < len(r); j, i = i, i+1 {
		a, b := r[i], r[j]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) &&
			p.Lon < (b.Lon-a.Lon)*(p.Lat-a.Lat)/(b.Lat-a.Lat)+a.Lon {
			inside = !inside
		}
	}
	return inside
}

// Closed returns r with its first vertex repeated at the end when needed.
func Closed(r domain.Ring) domain.Ring {
	if len(r) == 0 || r[0] == r[len(r)-1] {
		return r
	}
	out := make(domain.Ring, len(r), len(r)+1)
	copy(out, r)
	return append(out, r[0])
}

// Reversed returns a copy of r in the opposite winding.
func Reversed(r domain.Ring) domain.Ring {
	out := make(domain.Ring, len(r))
	for i, c := range r {
		out[len(r)-1-i] = c
	}
	return out
}

// AssemblePolygons groups shapefile rings into polygons. Shapefiles store
// outer rings clockwise and holes counter-clockwise; each hole is attached
// to the first outer ring containing one of its vertices. The result follows RFC 7946
// winding (outer counter-clockwise, holes clockwise).
func AssemblePolygons(rings []domain.Ring) []domain.Polygon {
	var outers, holes []domain.Ring
	for _, r := range rings {
		r = Closed(r)
		if len(r) < 4 {
			continue
		}
		if SignedArea(r) < 0 {
			outers = append(outers, r)
		} else {
			holes = append(holes, r)
		}
	}
	// Files written with the opposite convention have no clockwise rings.
	if len(outers) == 0 {
		outers, holes = holes, nil
	}

	polys := make([]domain.Polygon, len(outers))
	for i, o := range outers {
		polys[i] = domain.Polygon{counterClockwise(o)}
	}

	for _, h := range holes {
		placed := false
		for i, o := range outers {
			if anyVertexInside(o, h) {
				polys[i] = append(polys[i], clockwise(h))
				placed = true
				break
			}
		}
		if !placed {
			polys = append(polys, domain.Polygon{counterClockwise(h)})
		}
	}
	return polys
}

func counterClockwise(r domain.Ring) domain.Ring {
	if SignedArea(r) < 0 {
		return Reversed(r)
	}
	return r
}

func clockwise(r domain.Ring) domain.Ring {
	if SignedArea(r) > 0 {
		return Reversed(r)
	}
	return r
}

// anyVertexInside tolerates holes that share vertices with their outer ring.
func anyVertexInside(outer, hole domain.Ring) bool {
	for _, c := range hole {
		if RingContains(outer, c) {
			return true
		}
	}
	return false
}
