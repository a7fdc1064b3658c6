package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	yaml := `
scenario:
  name: springfield-clinics
  facilities: data/clinics.shp
  districts: postgis:public.wards
  capacity: 1800
  radius: 12.5
  name_attr: WARD_NAME
  pop_attr: POP2020
  format: xlsx
  output: out/springfield.xlsx
`
	dir := t.TempDir()
	path := filepath.Join(dir, "springfield.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "springfield-clinics", s.Name)
	assert.Equal(t, "data/clinics.shp", s.Facilities)
	assert.Equal(t, "postgis:public.wards", s.Districts)
	assert.Equal(t, 1800, s.Capacity)
	assert.Equal(t, 12.5, s.Radius)
	assert.Equal(t, "WARD_NAME", s.NameAttr)
	assert.Equal(t, "POP2020", s.PopAttr)
	assert.Equal(t, "xlsx", s.Format)
	assert.Equal(t, "out/springfield.xlsx", s.Output)
}

func TestLoad_NameDefaultsToFile(t *testing.T) {
	yaml := `
scenario:
  facilities: clinics.geojson
  districts: wards.geojson
`
	dir := t.TempDir()
	path := filepath.Join(dir, "riverside.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "riverside", s.Name)
	// Unset parameters stay zero so configuration defaults apply.
	assert.Zero(t, s.Capacity)
	assert.Zero(t, s.Radius)
	assert.Empty(t, s.Format)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/scenario.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scenario: read")
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenario: ["), 0644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scenario: parse")
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing facilities",
			yaml: "scenario:\n  districts: wards.geojson\n",
			want: "facilities source is required",
		},
		{
			name: "missing districts",
			yaml: "scenario:\n  facilities: clinics.shp\n",
			want: "districts source is required",
		},
		{
			name: "unknown format",
			yaml: "scenario:\n  facilities: a.shp\n  districts: b.shp\n  format: pdf\n",
			want: `unknown format "pdf"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "s.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
