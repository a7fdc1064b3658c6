package source

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// wkbBytes marshals a geometry to little-endian WKB for fixtures.
func wkbBytes(t *testing.T, g geom.T) []byte {
	t.Helper()
	b, err := wkb.Marshal(g, wkb.NDR)
	require.NoError(t, err)
	return b
}

// unitSquare is a 10x10 polygon anchored at the origin.
func unitSquare() *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY,
		[]float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0}, []int{10})
}
