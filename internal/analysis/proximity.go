package analysis

import (
	"math"

	"github.com/fogleman/delaunay"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"gonum.org/v1/gonum/stat"
)

// Proximity measures spacing between neighboring facilities. Two
// facilities are neighbors when their Voronoi cells share a bounded
// edge, which is exactly when the Delaunay edge between them is interior
// (shared by two triangles); edges on the convex hull have unbounded
// cells on both sides and are excluded. The spacing of a neighbor pair
// is the distance between the two facilities themselves.
//
// Exact duplicate locations collapse to one site first. Fewer than four
// distinct sites, a degenerate (for example all-collinear) layout, or a
// layout with no interior edges at all cannot produce spacings and
// return ErrInsufficientData.
func Proximity(pts []geom.Coord) (*ProximityStats, error) {
	sites := dedupe(pts)
	if len(sites) < 4 {
		return nil, eris.Wrapf(ErrInsufficientData, "proximity: need at least 4 distinct facilities, have %d", len(sites))
	}

	tri, err := delaunay.Triangulate(sites)
	if err != nil {
		return nil, eris.Wrapf(ErrInsufficientData, "proximity: facility layout cannot be triangulated: %v", err)
	}

	spacings := interiorEdgeLengths(tri)
	if len(spacings) == 0 {
		return nil, eris.Wrap(ErrInsufficientData, "proximity: no bounded neighbor edges in facility layout")
	}

	stats := &ProximityStats{
		MeanSpacing: stat.Mean(spacings, nil),
		MinSpacing:  spacings[0],
		MaxSpacing:  spacings[0],
		RidgeCount:  len(spacings),
	}
	for _, s := range spacings[1:] {
		stats.MinSpacing = math.Min(stats.MinSpacing, s)
		stats.MaxSpacing = math.Max(stats.MaxSpacing, s)
	}
	return stats, nil
}

// interiorEdgeLengths walks the half-edge arrays and collects the length
// of every edge shared by two triangles, once per edge. A half-edge with
// twin -1 lies on the convex hull.
func interiorEdgeLengths(tri *delaunay.Triangulation) []float64 {
	var lengths []float64
	for e := 0; e < len(tri.Triangles); e++ {
		twin := tri.Halfedges[e]
		if twin < e {
			// Hull edge (-1) or an interior edge already taken via its twin.
			continue
		}
		p := tri.Points[tri.Triangles[e]]
		q := tri.Points[tri.Triangles[nextHalfedge(e)]]
		lengths = append(lengths, math.Hypot(p.X-q.X, p.Y-q.Y))
	}
	return lengths
}

// nextHalfedge returns the next half-edge within the same triangle.
func nextHalfedge(e int) int {
	if e%3 == 2 {
		return e - 2
	}
	return e + 1
}

// dedupe collapses exact duplicate coordinates, preserving first-seen
// order, and converts to triangulation sites.
func dedupe(pts []geom.Coord) []delaunay.Point {
	seen := make(map[[2]float64]struct{}, len(pts))
	sites := make([]delaunay.Point, 0, len(pts))
	for _, pt := range pts {
		key := [2]float64{pt[0], pt[1]}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sites = append(sites, delaunay.Point{X: pt[0], Y: pt[1]})
	}
	return sites
}
