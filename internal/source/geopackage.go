package source

import (
	"database/sql"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/gridscope/equimap-cli/internal/feature"
)

// loadGeoPackage reads the first feature table of a GeoPackage.
func loadGeoPackage(path string) (*feature.Collection, error) {
	sdb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "source: open geopackage %s: %v", path, err)
	}
	defer func() { _ = sdb.Close() }()

	var table string
	err = sdb.QueryRow(
		`SELECT table_name FROM gpkg_contents WHERE data_type = 'features' ORDER BY table_name LIMIT 1`,
	).Scan(&table)
	if err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "source: geopackage %s has no feature table: %v", path, err)
	}
	if strings.Contains(table, `"`) {
		return nil, eris.Wrapf(ErrDataLoad, "source: geopackage %s: invalid table name %q", path, table)
	}

	var geomCol string
	var srsID int
	err = sdb.QueryRow(
		`SELECT column_name, srs_id FROM gpkg_geometry_columns WHERE table_name = ?`, table,
	).Scan(&geomCol, &srsID)
	if err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "source: geopackage %s: geometry column of %s: %v", path, table, err)
	}

	rows, err := sdb.Query(`SELECT * FROM "` + table + `"`)
	if err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "source: geopackage %s: query %s: %v", path, table, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "source: geopackage %s: columns of %s: %v", path, table, err)
	}

	coll := &feature.Collection{Name: table, SR: gpkgSpatialRef(sdb, srsID)}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrapf(ErrDataLoad, "source: geopackage %s: scan %s: %v", path, table, err)
		}

		feat := &feature.Feature{Attrs: make(map[string]any, len(cols)-1)}
		for i, col := range cols {
			if col == geomCol {
				blob, ok := vals[i].([]byte)
				if !ok {
					continue
				}
				g, err := decodeGPKGGeometry(blob)
				if err != nil {
					return nil, eris.Wrapf(ErrDataLoad, "source: geopackage %s: geometry in %s row %d: %v", path, table, coll.Len(), err)
				}
				feat.Geom = g
				continue
			}
			feat.Attrs[col] = vals[i]
		}
		if feat.Geom == nil {
			return nil, eris.Wrapf(ErrDataLoad, "source: geopackage %s: %s row %d has no geometry", path, table, coll.Len())
		}
		coll.Features = append(coll.Features, feat)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "source: geopackage %s: iterate %s: %v", path, table, err)
	}
	if coll.Len() == 0 {
		return nil, eris.Wrapf(ErrDataLoad, "source: geopackage %s: table %s is empty", path, table)
	}

	zap.L().Info("geopackage loaded",
		zap.String("component", "source.geopackage"),
		zap.String("path", path),
		zap.String("table", table),
		zap.Int("features", coll.Len()),
		zap.Bool("crs", coll.SR != nil),
	)
	return coll, nil
}

// gpkgSpatialRef resolves an srs_id to a spatial reference. GeoPackage
// stores definitions as WKT, which the PROJ.4 parser rejects, so
// anything beyond the ubiquitous 4326 usually comes back unknown.
func gpkgSpatialRef(sdb *sql.DB, srsID int) *proj.SR {
	if srsID == 4326 {
		return wgs84Ref()
	}

	var def string
	if err := sdb.QueryRow(
		`SELECT definition FROM gpkg_spatial_ref_sys WHERE srs_id = ?`, srsID,
	).Scan(&def); err != nil {
		return nil
	}
	sr, err := proj.Parse(strings.TrimSpace(def))
	if err != nil {
		zap.L().Warn("unparseable srs definition, treating spatial reference as unknown",
			zap.String("component", "source.geopackage"),
			zap.Int("srs_id", srsID),
		)
		return nil
	}
	return sr
}

// decodeGPKGGeometry strips the GeoPackage binary header and decodes
// the WKB payload behind it. Header layout: "GP" magic, one version
// byte, one flags byte, an int32 srs_id, then an envelope whose size
// bits 1-3 of the flags encode.
func decodeGPKGGeometry(blob []byte) (geom.T, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, eris.New("not a GeoPackage geometry blob")
	}
	flags := blob[3]
	if flags&0x20 != 0 {
		return nil, eris.New("empty geometry")
	}

	var envelopeSize int
	switch (flags >> 1) & 0x07 {
	case 0:
		envelopeSize = 0
	case 1:
		envelopeSize = 32
	case 2, 3:
		envelopeSize = 48
	case 4:
		envelopeSize = 64
	default:
		return nil, eris.Errorf("invalid envelope indicator %d", (flags>>1)&0x07)
	}

	offset := 8 + envelopeSize
	if len(blob) <= offset {
		return nil, eris.New("truncated geometry blob")
	}
	g, err := wkb.Unmarshal(blob[offset:])
	if err != nil {
		return nil, eris.Wrap(err, "decode WKB")
	}
	return g, nil
}
