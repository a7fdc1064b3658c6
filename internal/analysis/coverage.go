package analysis

import (
	"math"

	cgeom "github.com/ctessum/geom"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// diskSegments is the vertex count of the polygon approximating each
// service disk. 64 matches the usual 16-segments-per-quadrant buffer
// default; the approximation undershoots a true disk's area by ~0.16%.
const diskSegments = 64

// Coverage estimates how much ground the facility network serves: each
// facility covers a disk of the given radius, the disks are unioned, and
// the union area is compared against the axis-aligned bounding box of
// the facility points. The percentage is nil when that box is degenerate
// (a single facility, or an axis-aligned row of them), since a zero-area
// denominator makes the ratio meaningless.
func Coverage(pts []geom.Coord, radius float64) (*CoverageStats, error) {
	if radius <= 0 {
		return nil, eris.Wrapf(ErrInvalidParameter, "coverage: service radius must be positive, got %g", radius)
	}
	if len(pts) == 0 {
		return nil, eris.Wrap(ErrInsufficientData, "coverage: no facilities")
	}

	var union cgeom.Polygonal
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	for i, pt := range pts {
		disk := diskPolygon(pt[0], pt[1], radius)
		if i == 0 {
			union = disk
		} else {
			union = union.Union(disk)
		}

		minX = math.Min(minX, pt[0])
		minY = math.Min(minY, pt[1])
		maxX = math.Max(maxX, pt[0])
		maxY = math.Max(maxY, pt[1])
	}

	stats := &CoverageStats{
		Radius:      radius,
		CoveredArea: union.Area(),
		BoundsArea:  (maxX - minX) * (maxY - minY),
	}
	if stats.BoundsArea > 0 {
		pct := stats.CoveredArea / stats.BoundsArea * 100
		stats.CoveredPct = &pct
	}
	return stats, nil
}

// diskPolygon builds a regular polygon approximating the disk of the
// given radius around (x, y). The ring is implicitly closed.
func diskPolygon(x, y, radius float64) cgeom.Polygon {
	ring := make([]cgeom.Point, 0, diskSegments)
	for i := 0; i < diskSegments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(diskSegments)
		ring = append(ring, cgeom.Point{
			X: x + radius*math.Cos(theta),
			Y: y + radius*math.Sin(theta),
		})
	}
	return cgeom.Polygon{ring}
}
