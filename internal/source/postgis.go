package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"

	"github.com/gridscope/equimap-cli/internal/db"
	"github.com/gridscope/equimap-cli/internal/feature"
)

// tableIdent constrains postgis: table references to plain, optionally
// schema-qualified identifiers, since table names cannot be bound as
// query parameters.
var tableIdent = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// loadPostGIS reads every row of a PostGIS table, decoding geometries
// through ST_AsBinary.
func loadPostGIS(ctx context.Context, table string, opts Options) (*feature.Collection, error) {
	if opts.Pool == nil {
		return nil, eris.Wrap(ErrDataLoad, "source: postgis source requires a database (set postgres.dsn)")
	}
	if !tableIdent.MatchString(table) {
		return nil, eris.Wrapf(ErrDataLoad, "source: invalid postgis table %q", table)
	}
	geomCol := opts.GeometryColumn
	if geomCol == "" {
		geomCol = "geom"
	}
	if !tableIdent.MatchString(geomCol) {
		return nil, eris.Wrapf(ErrDataLoad, "source: invalid geometry column %q", geomCol)
	}

	sr := postgisSpatialRef(ctx, opts.Pool, table, geomCol)

	q := fmt.Sprintf(`SELECT *, ST_AsBinary(%s) AS wkb_ FROM %s`, geomCol, table)
	rows, err := opts.Pool.Query(ctx, q)
	if err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "source: query %s: %v", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	coll := &feature.Collection{Name: table, SR: sr}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, eris.Wrapf(ErrDataLoad, "source: read %s row: %v", table, err)
		}

		feat := &feature.Feature{Attrs: make(map[string]any, len(fields))}
		for i, fd := range fields {
			switch fd.Name {
			case "wkb_":
				blob, ok := vals[i].([]byte)
				if !ok || len(blob) == 0 {
					continue
				}
				g, err := wkb.Unmarshal(blob)
				if err != nil {
					return nil, eris.Wrapf(ErrDataLoad, "source: decode %s geometry: %v", table, err)
				}
				feat.Geom = g
			case geomCol:
				// Raw geometry column; the decoded copy arrives as wkb_.
			default:
				feat.Attrs[fd.Name] = vals[i]
			}
		}
		if feat.Geom == nil {
			return nil, eris.Wrapf(ErrDataLoad, "source: %s row %d has no geometry", table, coll.Len())
		}
		coll.Features = append(coll.Features, feat)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "source: iterate %s: %v", table, err)
	}
	if coll.Len() == 0 {
		return nil, eris.Wrapf(ErrDataLoad, "source: table %s is empty", table)
	}

	zap.L().Info("postgis table loaded",
		zap.String("component", "source.postgis"),
		zap.String("table", table),
		zap.Int("features", coll.Len()),
		zap.Bool("crs", sr != nil),
	)
	return coll, nil
}

// postgisSpatialRef looks up the table SRID and its PROJ.4 definition
// from spatial_ref_sys. Unknown and custom SRIDs come back nil.
func postgisSpatialRef(ctx context.Context, pool db.Pool, table, geomCol string) *proj.SR {
	var srid int
	q := fmt.Sprintf(`SELECT ST_SRID(%s) FROM %s WHERE %s IS NOT NULL LIMIT 1`, geomCol, table, geomCol)
	if err := pool.QueryRow(ctx, q).Scan(&srid); err != nil || srid == 0 {
		return nil
	}

	var proj4 string
	if err := pool.QueryRow(ctx,
		`SELECT proj4text FROM spatial_ref_sys WHERE srid = $1`, srid,
	).Scan(&proj4); err != nil {
		return nil
	}
	sr, err := proj.Parse(strings.TrimSpace(proj4))
	if err != nil {
		zap.L().Warn("unparseable proj4 definition, treating spatial reference as unknown",
			zap.String("component", "source.postgis"),
			zap.Int("srid", srid),
		)
		return nil
	}
	return sr
}
