package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridscope/equimap-cli/internal/analysis"
)

func TestResolveJob_Defaults(t *testing.T) {
	cfg = testConfig()
	setFlag(t, analyzeCmd, "facilities", "clinics.geojson")
	setFlag(t, analyzeCmd, "districts", "wards.geojson")

	job, err := resolveJob(analyzeCmd)
	require.NoError(t, err)

	assert.Equal(t, "clinics.geojson", job.Facilities)
	assert.Equal(t, "wards.geojson", job.Districts)
	assert.Equal(t, 2000, job.Capacity)
	assert.Equal(t, 10.0, job.Radius)
	assert.Equal(t, "DIST_NAME", job.NameAttr)
	assert.Equal(t, "TOTAL_POP", job.PopAttr)
	assert.Equal(t, "text", job.Format)
}

func TestResolveJob_ScenarioOverlay(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()
	path := writeFile(t, dir, "springfield.yaml", `
scenario:
  facilities: data/clinics.shp
  districts: data/wards.gpkg
  capacity: 900
  radius: 5.5
  format: json
  output: out/report.json
`)
	setFlag(t, analyzeCmd, "scenario", path)

	job, err := resolveJob(analyzeCmd)
	require.NoError(t, err)

	assert.Equal(t, "data/clinics.shp", job.Facilities)
	assert.Equal(t, "data/wards.gpkg", job.Districts)
	assert.Equal(t, 900, job.Capacity)
	assert.Equal(t, 5.5, job.Radius)
	assert.Equal(t, "json", job.Format)
	assert.Equal(t, "out/report.json", job.Output)
	// Scenario left these alone, so config defaults hold.
	assert.Equal(t, "DIST_NAME", job.NameAttr)
}

func TestResolveJob_FlagsBeatScenario(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()
	path := writeFile(t, dir, "s.yaml", `
scenario:
  facilities: from-scenario.geojson
  districts: wards.geojson
  capacity: 900
`)
	setFlag(t, analyzeCmd, "scenario", path)
	setFlag(t, analyzeCmd, "facilities", "from-flag.geojson")
	setFlag(t, analyzeCmd, "capacity", "1500")

	job, err := resolveJob(analyzeCmd)
	require.NoError(t, err)

	assert.Equal(t, "from-flag.geojson", job.Facilities)
	assert.Equal(t, "wards.geojson", job.Districts)
	assert.Equal(t, 1500, job.Capacity)
}

func TestResolveJob_MissingSources(t *testing.T) {
	cfg = testConfig()

	_, err := resolveJob(analyzeCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--facilities")

	setFlag(t, analyzeCmd, "facilities", "clinics.geojson")
	_, err = resolveJob(analyzeCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--districts")
}

func TestInferFormat(t *testing.T) {
	tests := []struct {
		format string
		output string
		want   string
	}{
		{"", "", "text"},
		{"", "report.json", "json"},
		{"", "report.XLSX", "xlsx"},
		{"", "report.txt", "text"},
		{"json", "report.xlsx", "json"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, inferFormat(tt.format, tt.output), "format=%q output=%q", tt.format, tt.output)
	}
}

func TestAnalyzeCmd_EndToEnd(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()
	facPath := writeFile(t, dir, "clinics.geojson", clinicsFC)
	distPath := writeFile(t, dir, "wards.geojson", wardsFC)
	outPath := filepath.Join(dir, "report.json")

	setFlag(t, analyzeCmd, "facilities", facPath)
	setFlag(t, analyzeCmd, "districts", distPath)
	setFlag(t, analyzeCmd, "output", outPath)
	setFlag(t, analyzeCmd, "format", "json")

	analyzeCmd.SetContext(context.Background())
	require.NoError(t, analyzeCmd.RunE(analyzeCmd, nil))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var res analysis.Result
	require.NoError(t, json.Unmarshal(data, &res))

	assert.Equal(t, 3, res.FacilityCount)
	require.NotNil(t, res.Distribution)
	assert.Equal(t, 2, res.Distribution.Counts["East"])
	assert.Equal(t, 1, res.Distribution.Counts["West"])
	assert.Zero(t, res.Distribution.Unassigned)

	require.NotNil(t, res.Capacity)
	require.Len(t, res.Capacity.Rows, 2)
	// East: ceil(8100/2000)=5 required, 2 present. West: ceil(2500/2000)=2, 1 present.
	assert.Equal(t, 3, res.Capacity.Rows[0].Additional)
	assert.Equal(t, 1, res.Capacity.Rows[1].Additional)

	// Three facilities cannot form a spacing estimate; the run still
	// carries the remaining sections.
	assert.True(t, res.Failed(analysis.SectionProximity))
	assert.NotNil(t, res.Coverage)
	assert.NotNil(t, res.Dispersion)
	assert.InDelta(t, 17.0/3.0, res.Dispersion.Center.X, 1e-9)
}
