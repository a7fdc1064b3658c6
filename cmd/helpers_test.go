package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/gridscope/equimap-cli/internal/config"
)

// Small GeoJSON fixtures shared across command tests: three clinics in
// two adjacent 10x10 wards.
const clinicsFC = `{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"Point","coordinates":[2,2]},"properties":{"NAME":"Alpha"}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[3,7]},"properties":{"NAME":"Beta"}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[12,5]},"properties":{"NAME":"Gamma"}}]}`

const wardsFC = `{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]},"properties":{"DIST_NAME":"East","TOTAL_POP":8100}},
 {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[10,0],[20,0],[20,10],[10,10],[10,0]]]},"properties":{"DIST_NAME":"West","TOTAL_POP":2500}}]}`

func testConfig() *config.Config {
	return &config.Config{
		Log:      config.LogConfig{Level: "info", Format: "json"},
		Analysis: config.AnalysisConfig{Capacity: 2000, Radius: 10, NameAttr: "DIST_NAME", PopAttr: "TOTAL_POP"},
		Postgres: config.PostgresConfig{GeometryColumn: "geom"},
		Server:   config.ServerConfig{Addr: ":8080", CORSOrigins: []string{"*"}},
		Fetch:    config.FetchConfig{TimeoutSecs: 5, MaxRetries: 1, RateLimit: 100, UserAgent: "equimap-test/1.0"},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// setFlag sets a command flag and restores its default when the test
// finishes, so Changed state does not leak between tests.
func setFlag(t *testing.T, cmd *cobra.Command, name, value string) {
	t.Helper()
	f := cmd.Flags().Lookup(name)
	require.NotNil(t, f, "flag %s not registered", name)
	require.NoError(t, cmd.Flags().Set(name, value))
	t.Cleanup(func() {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}
