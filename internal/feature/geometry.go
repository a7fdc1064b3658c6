package feature

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Centroid returns a representative point for g. Points return their own
// coordinates, polygons the area centroid of outer rings minus holes, and
// multi-polygons the area-weighted centroid of their members. Linear and
// multi-point geometries average their vertices. Degenerate (zero-area)
// polygons fall back to the vertex mean so every feature stays placeable.
func Centroid(g geom.T) (geom.Coord, error) {
	switch t := g.(type) {
	case *geom.Point:
		return geom.Coord{t.X(), t.Y()}, nil

	case *geom.Polygon:
		cx, cy, area := polygonCentroid(t)
		if area == 0 {
			return vertexMean(t.FlatCoords(), t.Stride())
		}
		return geom.Coord{cx, cy}, nil

	case *geom.MultiPolygon:
		var sx, sy, total float64
		for i := 0; i < t.NumPolygons(); i++ {
			cx, cy, area := polygonCentroid(t.Polygon(i))
			sx += cx * area
			sy += cy * area
			total += area
		}
		if total == 0 {
			return vertexMean(t.FlatCoords(), t.Stride())
		}
		return geom.Coord{sx / total, sy / total}, nil

	case *geom.MultiPoint, *geom.LineString, *geom.MultiLineString:
		return vertexMean(t.FlatCoords(), t.Stride())

	case nil:
		return nil, eris.New("feature: centroid of nil geometry")

	default:
		return nil, eris.Errorf("feature: centroid of unsupported geometry type %T", g)
	}
}

// polygonCentroid computes the area centroid of a polygon, treating ring 0
// as the shell and later rings as holes. The returned area is absolute;
// zero area signals a degenerate polygon.
func polygonCentroid(p *geom.Polygon) (cx, cy, area float64) {
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := p.LinearRing(i)
		rx, ry, ra := ringCentroid(ring.FlatCoords(), ring.Stride())
		if ra == 0 {
			continue
		}
		if i == 0 {
			cx, cy, area = rx, ry, ra
			continue
		}
		// Subtract holes; guard against malformed rings larger than the shell.
		if ra >= area {
			continue
		}
		cx = (cx*area - rx*ra) / (area - ra)
		cy = (cy*area - ry*ra) / (area - ra)
		area -= ra
	}
	return cx, cy, area
}

// ringCentroid applies the shoelace formula over one ring's flat
// coordinates. Rings may or may not repeat the first vertex at the end;
// the wraparound term makes both layouts equivalent. The returned area is
// absolute.
func ringCentroid(flat []float64, stride int) (cx, cy, area float64) {
	n := len(flat) / stride
	if n < 3 {
		return 0, 0, 0
	}

	var a, sx, sy float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		xi, yi := flat[i*stride], flat[i*stride+1]
		xj, yj := flat[j*stride], flat[j*stride+1]
		cross := xi*yj - xj*yi
		a += cross
		sx += (xi + xj) * cross
		sy += (yi + yj) * cross
	}
	if a == 0 {
		return 0, 0, 0
	}
	cx = sx / (3 * a)
	cy = sy / (3 * a)
	if a < 0 {
		a = -a
	}
	return cx, cy, a / 2
}

// vertexMean averages all vertices of a flat coordinate slice.
func vertexMean(flat []float64, stride int) (geom.Coord, error) {
	n := len(flat) / stride
	if n == 0 {
		return nil, eris.New("feature: centroid of empty geometry")
	}
	var sx, sy float64
	for i := 0; i < n; i++ {
		sx += flat[i*stride]
		sy += flat[i*stride+1]
	}
	return geom.Coord{sx / float64(n), sy / float64(n)}, nil
}
