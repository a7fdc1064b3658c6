// Package source loads facility and district datasets into feature
// collections. A dataset is addressed by a spec string:
//
//	facilities.shp              local shapefile (reads .prj/.cpg sidecars)
//	districts.geojson           local GeoJSON feature collection
//	city.gpkg                   local GeoPackage (first feature table)
//	postgis:public.districts    PostGIS table via the configured pool
//	https://host/data.zip       remote archive, downloaded and extracted
//	ftp://host/pub/wards.zip    same, over anonymous FTP
package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gridscope/equimap-cli/internal/db"
	"github.com/gridscope/equimap-cli/internal/feature"
)

// ErrDataLoad marks any failure to read, parse or reproject an input
// dataset. Callers treat it as fatal for the run.
var ErrDataLoad = eris.New("source: data load failed")

// Options configures dataset loading.
type Options struct {
	// CacheDir receives remote downloads; empty means a per-user cache
	// directory.
	CacheDir string
	// Encoding forces attribute text decoding for shapefiles that ship
	// without a .cpg sidecar (IANA name, e.g. "windows-1252").
	Encoding string
	// GeometryColumn is the geometry column of PostGIS tables
	// (default "geom").
	GeometryColumn string
	// Pool serves postgis: specs. Loading one without a pool is an
	// error.
	Pool db.Pool
	// Fetcher serves remote specs; nil falls back to a default fetcher.
	Fetcher *Fetcher
}

// IsPostGIS reports whether spec names a PostGIS table, so callers
// know to connect a pool before loading.
func IsPostGIS(spec string) bool {
	return strings.HasPrefix(spec, "postgis:")
}

// Load reads the dataset named by spec and returns it as a feature
// collection. All failures wrap ErrDataLoad.
func Load(ctx context.Context, spec string, opts Options) (*feature.Collection, error) {
	switch {
	case IsPostGIS(spec):
		return loadPostGIS(ctx, strings.TrimPrefix(spec, "postgis:"), opts)

	case strings.HasPrefix(spec, "http://"),
		strings.HasPrefix(spec, "https://"),
		strings.HasPrefix(spec, "ftp://"):
		f := opts.Fetcher
		if f == nil {
			f = NewFetcher(FetchOptions{})
		}
		local, err := f.Fetch(ctx, spec, opts.CacheDir)
		if err != nil {
			return nil, err
		}
		zap.L().Info("remote source fetched",
			zap.String("component", "source"),
			zap.String("spec", spec),
			zap.String("path", local),
		)
		return loadFile(local, opts)

	default:
		return loadFile(spec, opts)
	}
}

// loadFile dispatches a local path on its extension.
func loadFile(path string, opts Options) (*feature.Collection, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return loadShapefile(path, opts)
	case ".geojson", ".json":
		return loadGeoJSON(path)
	case ".gpkg":
		return loadGeoPackage(path)
	default:
		return nil, eris.Wrapf(ErrDataLoad, "source: unsupported format %q", filepath.Ext(path))
	}
}

// Align brings districts into the facility coordinate system. The
// facility system is authoritative: when both collections carry a
// usable spatial reference the districts are reprojected into it. When
// either side is unknown the two are assumed to share a system already
// and districts pass through unchanged.
func Align(facilities, districts *feature.Collection) (*feature.Collection, error) {
	if facilities == nil || districts == nil {
		return nil, eris.Wrap(ErrDataLoad, "source: align requires both collections")
	}
	if facilities.SR == nil || districts.SR == nil {
		zap.L().Warn("spatial reference missing, assuming shared coordinate system",
			zap.String("component", "source"),
			zap.Bool("facilities_sr", facilities.SR != nil),
			zap.Bool("districts_sr", districts.SR != nil),
		)
		return districts, nil
	}

	out, err := feature.Reproject(districts, facilities.SR)
	if err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "source: reproject districts: %v", err)
	}
	return out, nil
}

// collectionName derives a display name from a file path.
func collectionName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
