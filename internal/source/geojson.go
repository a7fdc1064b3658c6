package source

import (
	"encoding/json"
	"os"

	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/gridscope/equimap-cli/internal/feature"
)

// wgs84 is the coordinate system GeoJSON mandates (RFC 7946).
const wgs84 = "+proj=longlat +datum=WGS84 +no_defs"

// loadGeoJSON reads a GeoJSON feature collection from disk.
func loadGeoJSON(path string) (*feature.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "source: read %s: %v", path, err)
	}
	return FromGeoJSON(collectionName(path), data)
}

// FromGeoJSON parses a GeoJSON feature collection. File loading goes
// through it, and so do datasets embedded in analyze requests.
func FromGeoJSON(name string, data []byte) (*feature.Collection, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "source: parse geojson %s: %v", name, err)
	}
	if len(fc.Features) == 0 {
		return nil, eris.Wrapf(ErrDataLoad, "source: geojson %s has no features", name)
	}

	coll := &feature.Collection{Name: name, SR: wgs84Ref()}
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			return nil, eris.Wrapf(ErrDataLoad, "source: geojson %s: feature %d has no geometry", name, i)
		}
		attrs := f.Properties
		if attrs == nil {
			attrs = map[string]any{}
		}
		coll.Features = append(coll.Features, &feature.Feature{Geom: f.Geometry, Attrs: attrs})
	}

	zap.L().Info("geojson loaded",
		zap.String("component", "source.geojson"),
		zap.String("name", name),
		zap.Int("features", coll.Len()),
	)
	return coll, nil
}

func wgs84Ref() *proj.SR {
	sr, err := proj.Parse(wgs84)
	if err != nil {
		return nil
	}
	return sr
}
