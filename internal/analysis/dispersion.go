package analysis

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"gonum.org/v1/gonum/stat"
)

// Dispersion measures how spread out the facility network is: the mean
// location of all facilities, and the mean and population standard
// deviation of each facility's distance to it. A single facility is a
// valid network with zero spread.
func Dispersion(pts []geom.Coord) (*DispersionStats, error) {
	if len(pts) == 0 {
		return nil, eris.Wrap(ErrInsufficientData, "dispersion: no facilities")
	}

	var cx, cy float64
	for _, pt := range pts {
		cx += pt[0]
		cy += pt[1]
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))

	dists := make([]float64, len(pts))
	for i, pt := range pts {
		dists[i] = math.Hypot(pt[0]-cx, pt[1]-cy)
	}

	return &DispersionStats{
		Center:       Coordinate{X: cx, Y: cy},
		MeanDistance: stat.Mean(dists, nil),
		StdDistance:  stat.PopStdDev(dists, nil),
	}, nil
}
