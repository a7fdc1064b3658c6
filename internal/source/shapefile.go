package source

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom/proj"
	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/gridscope/equimap-cli/internal/feature"
)

// loadShapefile reads a shapefile together with its .prj and .cpg
// sidecars.
func loadShapefile(path string, opts Options) (*feature.Collection, error) {
	log := zap.L().With(
		zap.String("component", "source.shapefile"),
		zap.String("path", path),
	)

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "source: open shapefile %s: %v", path, err)
	}
	defer func() { _ = reader.Close() }()

	decoder := attrDecoder(path, opts.Encoding)

	// Build the attribute column names once.
	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	coll := &feature.Collection{Name: collectionName(path), SR: readPrj(path)}

	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		g := shapeToGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		attrs := make(map[string]any, len(names))
		for i, name := range names {
			attrs[name] = decodeAttr(decoder, reader.Attribute(i))
		}
		coll.Features = append(coll.Features, &feature.Feature{Geom: g, Attrs: attrs})
	}

	if skipped > 0 {
		log.Debug("skipped unsupported shapefile records", zap.Int("skipped", skipped))
	}
	if coll.Len() == 0 {
		return nil, eris.Wrapf(ErrDataLoad, "source: shapefile %s has no usable features", path)
	}

	log.Info("shapefile loaded",
		zap.Int("features", coll.Len()),
		zap.Bool("crs", coll.SR != nil),
	)
	return coll, nil
}

// readPrj parses the .prj sidecar into a spatial reference. Most .prj
// files carry WKT, which the PROJ.4 parser does not accept; those fall
// back to an unknown reference and the run proceeds under the
// shared-system assumption.
func readPrj(shpPath string) *proj.SR {
	prjPath := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj"
	data, err := os.ReadFile(prjPath)
	if err != nil {
		return nil
	}
	sr, err := proj.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		zap.L().Warn("unparseable .prj, treating spatial reference as unknown",
			zap.String("component", "source.shapefile"),
			zap.String("path", prjPath),
		)
		return nil
	}
	return sr
}

// attrDecoder resolves the DBF text decoder: an explicit override
// wins, then the .cpg sidecar. nil keeps the raw bytes.
func attrDecoder(shpPath, override string) *encoding.Decoder {
	name := override
	if name == "" {
		cpgPath := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".cpg"
		data, err := os.ReadFile(cpgPath)
		if err != nil {
			return nil
		}
		name = strings.TrimSpace(string(data))
	}
	if name == "" {
		return nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		zap.L().Warn("unsupported attribute encoding, keeping raw text",
			zap.String("component", "source.shapefile"),
			zap.String("encoding", name),
		)
		return nil
	}
	return enc.NewDecoder()
}

func decodeAttr(dec *encoding.Decoder, raw string) string {
	if dec == nil {
		return raw
	}
	out, err := dec.String(raw)
	if err != nil {
		return raw
	}
	return out
}

// shapeToGeom converts a go-shp shape to a geometry. Unsupported and
// nil shapes return nil.
func shapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.MultiPoint:
		if len(s.Points) == 0 {
			return nil
		}
		flat := make([]float64, 0, len(s.Points)*2)
		for _, p := range s.Points {
			flat = append(flat, p.X, p.Y)
		}
		return geom.NewMultiPointFlat(geom.XY, flat)
	case *shp.PolyLine:
		return polyLineGeom(s)
	case *shp.Polygon:
		return polygonGeom(s)
	default:
		return nil
	}
}

// polyLineGeom converts a shapefile polyline record, one line string
// per part.
func polyLineGeom(pl *shp.PolyLine) geom.T {
	if pl == nil || len(pl.Parts) == 0 || len(pl.Points) == 0 {
		return nil
	}

	flat := make([]float64, 0, len(pl.Points)*2)
	ends := make([]int, 0, len(pl.Parts))
	for i := range pl.Parts {
		for _, p := range partSlice(pl.Points, pl.Parts, i) {
			flat = append(flat, p.X, p.Y)
		}
		ends = append(ends, len(flat))
	}
	return geom.NewMultiLineStringFlat(geom.XY, flat, ends)
}

// polygonGeom converts a shapefile polygon record. Ring winding carries
// the nesting: clockwise rings open a new polygon and counter-clockwise
// rings are holes of the polygon opened before them.
func polygonGeom(p *shp.Polygon) geom.T {
	if p == nil || len(p.Parts) == 0 || len(p.Points) == 0 {
		return nil
	}

	flat := make([]float64, 0, len(p.Points)*2)
	var endss [][]int
	for i := range p.Parts {
		pts := partSlice(p.Points, p.Parts, i)
		if len(pts) < 4 {
			zap.L().Debug("skipping malformed polygon ring",
				zap.String("component", "source.shapefile"),
				zap.Int("part", i),
				zap.Int("points", len(pts)),
			)
			continue
		}
		if ringWindsClockwise(pts) || len(endss) == 0 {
			endss = append(endss, nil)
		}
		for _, pt := range pts {
			flat = append(flat, pt.X, pt.Y)
		}
		endss[len(endss)-1] = append(endss[len(endss)-1], len(flat))
	}
	if len(endss) == 0 {
		return nil
	}
	return geom.NewMultiPolygonFlat(geom.XY, flat, endss)
}

// partSlice returns the points of part i of a multi-part record.
func partSlice(points []shp.Point, parts []int32, i int) []shp.Point {
	start := parts[i]
	end := int32(len(points))
	if i+1 < len(parts) {
		end = parts[i+1]
	}
	if start < 0 || start > end || end > int32(len(points)) {
		return nil
	}
	return points[start:end]
}

// ringWindsClockwise reports the winding of a ring by its signed area.
// Shapefile outer rings wind clockwise, holes counter-clockwise.
func ringWindsClockwise(pts []shp.Point) bool {
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum < 0
}
