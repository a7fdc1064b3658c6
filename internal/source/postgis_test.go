package source

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestLoadPostGIS(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`SELECT ST_SRID\(geom\) FROM wards WHERE geom IS NOT NULL LIMIT 1`).
		WillReturnRows(pgxmock.NewRows([]string{"st_srid"}).AddRow(4326))
	mock.ExpectQuery(`SELECT proj4text FROM spatial_ref_sys WHERE srid = \$1`).
		WithArgs(4326).
		WillReturnRows(pgxmock.NewRows([]string{"proj4text"}).AddRow(wgs84))
	mock.ExpectQuery(`SELECT \*, ST_AsBinary\(geom\) AS wkb_ FROM wards`).
		WillReturnRows(pgxmock.NewRows([]string{"DIST_NAME", "TOTAL_POP", "geom", "wkb_"}).
			AddRow("East", 8100.0, []byte{0x01}, wkbBytes(t, unitSquare())).
			AddRow("West", 2500.0, []byte{0x01}, wkbBytes(t, geom.NewPointFlat(geom.XY, []float64{4, 4}))))

	coll, err := Load(context.Background(), "postgis:wards", Options{Pool: mock})
	require.NoError(t, err)

	assert.Equal(t, "wards", coll.Name)
	assert.NotNil(t, coll.SR)
	require.Equal(t, 2, coll.Len())

	assert.Equal(t, "East", coll.Features[0].String("DIST_NAME"))
	pop, err := coll.Features[0].Number("TOTAL_POP")
	require.NoError(t, err)
	assert.Equal(t, 8100.0, pop)

	// The raw geometry column is dropped, only the decoded copy stays.
	_, hasRaw := coll.Features[0].Attrs["geom"]
	assert.False(t, hasRaw)
	_, hasWKB := coll.Features[0].Attrs["wkb_"]
	assert.False(t, hasWKB)

	_, ok := coll.Features[0].Geom.(*geom.Polygon)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadPostGISSchemaQualified(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`SELECT ST_SRID\(geom\) FROM public\.wards WHERE geom IS NOT NULL LIMIT 1`).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT \*, ST_AsBinary\(geom\) AS wkb_ FROM public\.wards`).
		WillReturnRows(pgxmock.NewRows([]string{"DIST_NAME", "geom", "wkb_"}).
			AddRow("East", []byte{0x01}, wkbBytes(t, unitSquare())))

	coll, err := Load(context.Background(), "postgis:public.wards", Options{Pool: mock})
	require.NoError(t, err)
	assert.Nil(t, coll.SR, "unresolvable SRID leaves the reference unknown")
	assert.Equal(t, 1, coll.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadPostGISEmptyTable(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`SELECT ST_SRID\(geom\) FROM wards`).
		WillReturnRows(pgxmock.NewRows([]string{"st_srid"}))
	mock.ExpectQuery(`SELECT \*, ST_AsBinary\(geom\) AS wkb_ FROM wards`).
		WillReturnRows(pgxmock.NewRows([]string{"DIST_NAME", "geom", "wkb_"}))

	_, err := Load(context.Background(), "postgis:wards", Options{Pool: mock})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDataLoad))
	assert.Contains(t, err.Error(), "empty")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadPostGISNoPool(t *testing.T) {
	_, err := Load(context.Background(), "postgis:wards", Options{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDataLoad))
	assert.Contains(t, err.Error(), "postgres.dsn")
}

func TestLoadPostGISInvalidTable(t *testing.T) {
	mock := newMockPool(t)

	_, err := Load(context.Background(), "postgis:wards; DROP TABLE wards", Options{Pool: mock})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDataLoad))
	assert.Contains(t, err.Error(), "invalid postgis table")
}

func TestLoadPostGISCustomGeometryColumn(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`SELECT ST_SRID\(shape\) FROM wards WHERE shape IS NOT NULL LIMIT 1`).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT \*, ST_AsBinary\(shape\) AS wkb_ FROM wards`).
		WillReturnRows(pgxmock.NewRows([]string{"DIST_NAME", "shape", "wkb_"}).
			AddRow("East", []byte{0x01}, wkbBytes(t, unitSquare())))

	coll, err := Load(context.Background(), "postgis:wards", Options{Pool: mock, GeometryColumn: "shape"})
	require.NoError(t, err)
	assert.Equal(t, 1, coll.Len())

	_, hasRaw := coll.Features[0].Attrs["shape"]
	assert.False(t, hasRaw)
	assert.NoError(t, mock.ExpectationsWereMet())
}
