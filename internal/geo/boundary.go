// Package geo loads region boundaries and derives which regions border each
// other.
package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Boundary is one region outline.
type Boundary struct {
	Code string
	Name string
	Geom geom.T
}

// polygon is one polygonal part as flat XY rings, outer ring first and
// holes after.
type polygon [][]float64

// polygons splits a polygonal geometry into its parts. Non-polygonal
// geometries have none.
func polygons(g geom.T) []polygon {
	switch t := g.(type) {
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil
		}
		p := make(polygon, 0, t.NumLinearRings())
		for i := 0; i < t.NumLinearRings(); i++ {
			p = append(p, xyFlat(t.LinearRing(i)))
		}
		return []polygon{p}
	case *geom.MultiPolygon:
		var out []polygon
		for i := 0; i < t.NumPolygons(); i++ {
			out = append(out, polygons(t.Polygon(i))...)
		}
		return out
	}
	return nil
}

// contains reports whether c lies inside the outer ring of p and outside
// all of its holes.
func (p polygon) contains(c geom.Coord) bool {
	if len(p) == 0 || !xy.IsPointInRing(geom.XY, c, p[0]) {
		return false
	}
	for _, hole := range p[1:] {
		if xy.IsPointInRing(geom.XY, c, hole) {
			return false
		}
	}
	return true
}

// xyFlat drops any Z or M ordinates.
func xyFlat(r *geom.LinearRing) []float64 {
	stride := r.Stride()
	flat := r.FlatCoords()
	if stride == 2 {
		return flat
	}
	out := make([]float64, 0, len(flat)/stride*2)
	for i := 0; i+1 < len(flat); i += stride {
		out = append(out, flat[i], flat[i+1])
	}
	return out
}
