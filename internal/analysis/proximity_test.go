package analysis

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func coords(xy ...float64) []geom.Coord {
	pts := make([]geom.Coord, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		pts = append(pts, geom.Coord{xy[i], xy[i+1]})
	}
	return pts
}

func TestProximitySquare(t *testing.T) {
	// Four corners of a 10-unit square: the only bounded neighbor pair is
	// the diagonal shared by the two triangles.
	stats, err := Proximity(coords(0, 0, 10, 0, 10, 10, 0, 10))
	require.NoError(t, err)

	want := 10 * math.Sqrt2
	assert.Equal(t, 1, stats.RidgeCount)
	assert.InDelta(t, want, stats.MeanSpacing, 1e-9)
	assert.InDelta(t, want, stats.MinSpacing, 1e-9)
	assert.InDelta(t, want, stats.MaxSpacing, 1e-9)
}

func TestProximityGrid(t *testing.T) {
	// 3x3 unit grid: every edge is either an axis step (1) or a cell
	// diagonal (sqrt 2), so the extremes are fixed whatever diagonal
	// orientation the triangulation picks.
	var pts []geom.Coord
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			pts = append(pts, geom.Coord{float64(x), float64(y)})
		}
	}

	stats, err := Proximity(pts)
	require.NoError(t, err)

	assert.Greater(t, stats.RidgeCount, 4)
	assert.InDelta(t, 1, stats.MinSpacing, 1e-9)
	assert.InDelta(t, math.Sqrt2, stats.MaxSpacing, 1e-9)
	assert.GreaterOrEqual(t, stats.MeanSpacing, stats.MinSpacing)
	assert.LessOrEqual(t, stats.MeanSpacing, stats.MaxSpacing)
}

func TestProximityTooFewFacilities(t *testing.T) {
	tests := []struct {
		name string
		pts  []geom.Coord
	}{
		{"none", nil},
		{"one", coords(1, 1)},
		{"two", coords(0, 0, 5, 5)},
		{"three", coords(0, 0, 10, 0, 5, 8)},
		{"four with duplicates", coords(0, 0, 10, 0, 5, 8, 5, 8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Proximity(tt.pts)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInsufficientData))
		})
	}
}

func TestProximityCollinear(t *testing.T) {
	_, err := Proximity(coords(0, 0, 1, 1, 2, 2, 3, 3, 4, 4))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInsufficientData))
}

func TestProximityDuplicatesCollapse(t *testing.T) {
	base := coords(0, 0, 10, 0, 10, 10, 0, 10)
	doubled := append(append([]geom.Coord{}, base...), base...)

	a, err := Proximity(base)
	require.NoError(t, err)
	b, err := Proximity(doubled)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestNextHalfedge(t *testing.T) {
	assert.Equal(t, 1, nextHalfedge(0))
	assert.Equal(t, 2, nextHalfedge(1))
	assert.Equal(t, 0, nextHalfedge(2))
	assert.Equal(t, 4, nextHalfedge(3))
	assert.Equal(t, 3, nextHalfedge(5))
}
