package analysis

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispersionSquare(t *testing.T) {
	// Four corners of a 10-unit square: every corner is equidistant from
	// the center, so the spread collapses to zero.
	stats, err := Dispersion(coords(0, 0, 10, 0, 10, 10, 0, 10))
	require.NoError(t, err)

	assert.InDelta(t, 5, stats.Center.X, 1e-12)
	assert.InDelta(t, 5, stats.Center.Y, 1e-12)
	assert.InDelta(t, math.Sqrt(50), stats.MeanDistance, 1e-9)
	assert.InDelta(t, 0, stats.StdDistance, 1e-9)
}

func TestDispersionSingleFacility(t *testing.T) {
	stats, err := Dispersion(coords(7, -3))
	require.NoError(t, err)

	assert.Equal(t, Coordinate{X: 7, Y: -3}, stats.Center)
	assert.Zero(t, stats.MeanDistance)
	assert.Zero(t, stats.StdDistance)
}

func TestDispersionUsesPopulationStd(t *testing.T) {
	// Two facilities at the origin and one at x=30: distances to the
	// center are {10, 10, 20}. The population std divides by n, not n-1.
	stats, err := Dispersion(coords(0, 0, 0, 0, 30, 0))
	require.NoError(t, err)

	// Center x = 10; distances {10, 10, 20}; mean 40/3.
	mean := 40.0 / 3.0
	variance := (2*math.Pow(10-mean, 2) + math.Pow(20-mean, 2)) / 3
	assert.InDelta(t, 10, stats.Center.X, 1e-12)
	assert.InDelta(t, mean, stats.MeanDistance, 1e-9)
	assert.InDelta(t, math.Sqrt(variance), stats.StdDistance, 1e-9)
}

func TestDispersionNoFacilities(t *testing.T) {
	_, err := Dispersion(nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInsufficientData))
}
