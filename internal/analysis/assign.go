package analysis

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/gridscope/equimap-cli/internal/feature"
)

// Assignment maps facilities onto the districts that contain them.
type Assignment struct {
	// DistrictOf[i] is the district index containing facility i, or -1.
	DistrictOf []int
	// Counts[j] is the number of facilities inside district j.
	Counts []int
	// Unassigned counts facilities that no district contains.
	Unassigned int
}

// Assign places every facility in the first district whose interior
// contains its representative point. Containment is strict: a point on a
// district boundary belongs to no district. When districts overlap, the
// earliest one in collection order wins, so repeated runs over the same
// input always agree.
func Assign(fac, dist *feature.Collection) (*Assignment, error) {
	pts, err := fac.Points()
	if err != nil {
		return nil, eris.Wrap(err, "analysis: facility representative points")
	}
	return assignPoints(pts, dist), nil
}

func assignPoints(pts []geom.Coord, dist *feature.Collection) *Assignment {
	a := &Assignment{
		DistrictOf: make([]int, len(pts)),
		Counts:     make([]int, dist.Len()),
	}
	for i, pt := range pts {
		a.DistrictOf[i] = -1
		for j, d := range dist.Features {
			if within(pt, d.Geom) {
				a.DistrictOf[i] = j
				a.Counts[j]++
				break
			}
		}
		if a.DistrictOf[i] == -1 {
			a.Unassigned++
		}
	}
	return a
}

// within reports whether pt lies strictly inside a polygonal geometry.
// Non-polygonal district geometries contain nothing.
func within(pt geom.Coord, g geom.T) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return withinPolygon(pt, t)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if withinPolygon(pt, t.Polygon(i)) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// withinPolygon tests strict interior containment: inside the shell,
// outside every hole, and not on any ring boundary.
func withinPolygon(pt geom.Coord, p *geom.Polygon) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	for i := 0; i < p.NumLinearRings(); i++ {
		if onRing(pt, p.LinearRing(i)) {
			return false
		}
	}
	if !xy.IsPointInRing(p.Layout(), pt, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(p.Layout(), pt, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

// onRing reports whether pt sits exactly on one of the ring's segments.
// Exact arithmetic only: boundary contact on real-world data is already a
// measure-zero event, and fuzzing the test with an epsilon would pull
// interior points onto the boundary.
func onRing(pt geom.Coord, ring *geom.LinearRing) bool {
	flat := ring.FlatCoords()
	stride := ring.Stride()
	n := len(flat) / stride
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		x1, y1 := flat[i*stride], flat[i*stride+1]
		x2, y2 := flat[j*stride], flat[j*stride+1]
		if onSegment(pt[0], pt[1], x1, y1, x2, y2) {
			return true
		}
	}
	return false
}

func onSegment(px, py, x1, y1, x2, y2 float64) bool {
	cross := (x2-x1)*(py-y1) - (y2-y1)*(px-x1)
	if cross != 0 {
		return false
	}
	return px >= min(x1, x2) && px <= max(x1, x2) &&
		py >= min(y1, y2) && py <= max(y1, y2)
}

// buildDistribution shapes an assignment into the per-district view,
// merging duplicate district names.
func buildDistribution(a *Assignment, dist *feature.Collection, nameAttr string) *Distribution {
	d := &Distribution{
		Counts:     make(map[string]int, dist.Len()),
		Unassigned: a.Unassigned,
	}
	for j, f := range dist.Features {
		d.Counts[districtName(f, nameAttr, j)] += a.Counts[j]
	}
	for name, n := range d.Counts {
		if n == 0 {
			d.Empty = append(d.Empty, name)
		}
	}
	sort.Strings(d.Empty)
	return d
}

// districtName resolves the display name of district j, synthesizing a
// stable placeholder when the name attribute is blank.
func districtName(f *feature.Feature, nameAttr string, j int) string {
	if name := f.String(nameAttr); name != "" {
		return name
	}
	return fmt.Sprintf("district_%d", j+1)
}
