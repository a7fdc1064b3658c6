package feature

import (
	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Reproject returns a copy of c with every geometry transformed into dst.
// The source collection is not modified. Both spatial references must be
// known; callers decide what "unknown" means for their pipeline.
func Reproject(c *Collection, dst *proj.SR) (*Collection, error) {
	if c == nil {
		return nil, eris.New("feature: reproject nil collection")
	}
	if c.SR == nil || dst == nil {
		return nil, eris.New("feature: reproject requires both spatial references")
	}

	transform, err := c.SR.NewTransform(dst)
	if err != nil {
		return nil, eris.Wrap(err, "feature: build transform")
	}

	out := &Collection{
		Name:     c.Name,
		SR:       dst,
		Features: make([]*Feature, 0, len(c.Features)),
	}
	for i, f := range c.Features {
		g, err := transformGeom(f.Geom, transform)
		if err != nil {
			return nil, eris.Wrapf(err, "feature: reproject feature %d", i)
		}
		out.Features = append(out.Features, &Feature{Geom: g, Attrs: f.Attrs})
	}
	return out, nil
}

// transformGeom rebuilds g with every coordinate pushed through t. Only
// the X/Y ordinates transform; any extra ordinates (Z, M) pass through.
func transformGeom(g geom.T, t proj.Transformer) (geom.T, error) {
	if g == nil {
		return nil, eris.New("feature: transform nil geometry")
	}

	layout := g.Layout()
	flat, err := transformFlat(g.FlatCoords(), layout.Stride(), t)
	if err != nil {
		return nil, err
	}

	// The rebuilt geometry carries no SRID: after a transform the numeric
	// SRID of the source no longer applies, and the collection tracks the
	// spatial reference anyway.
	switch g := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(layout, flat), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(layout, flat), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(layout, flat), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(layout, flat, g.Ends()), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(layout, flat, g.Ends()), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(layout, flat, g.Endss()), nil
	default:
		return nil, eris.Errorf("feature: transform unsupported geometry type %T", g)
	}
}

func transformFlat(src []float64, stride int, t proj.Transformer) ([]float64, error) {
	flat := make([]float64, len(src))
	copy(flat, src)
	for i := 0; i+1 < len(flat); i += stride {
		x, y, err := t(flat[i], flat[i+1])
		if err != nil {
			return nil, eris.Wrap(err, "feature: transform coordinate")
		}
		flat[i], flat[i+1] = x, y
	}
	return flat, nil
}
