package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"assign", "combine", "colour", "analyze", "runs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "catchment", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	flag := analyzeCmd.Flags().Lookup("label")
	require.NotNil(t, flag)
	assert.Equal(t, "analysis", flag.DefValue)
	assert.NotNil(t, analyzeCmd.Flags().Lookup("no-store"))
	assert.NotNil(t, analyzeCmd.Flags().Lookup("out"))
}

func TestColourCommand_Alias(t *testing.T) {
	assert.Contains(t, colourCmd.Aliases, "color")
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "colours", "stats"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}
}

// workspace writes a small analysis into a temp dir, makes it the working
// directory and returns it.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"units.csv":      "unit_id,region_code,use_primary,use_hub\nU1,R1,1,0\nU2,R2,1,0\nH,R2,0,1\n",
		"areas.csv":      "area_id,region_code\nA1,R1\nA2,R1\nA3,R2\n",
		"unit_times.csv": "from,U1,U2,H\nU1,0,15,10\nU2,15,0,5\nH,10,5,0\n",
		"area_times.csv": "area,U1,U2,H\nA1,5,20,30\nA2,12,9,30\nA3,30,4,6\n",
		"x_areas.csv":    "area_id,admissions,selected\nA1,10,1\nA2,20,0\nA3,30,0\n",
		"y_areas.csv":    "area_id,admissions,selected\nA1,1,0\nA3,3,1\n",
		"x_units.csv":    "unit_id,selected\nU1,1\n",
		"regions.geojson": `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"code":"R1","name":"North"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
{"type":"Feature","properties":{"code":"R2","name":"South"},"geometry":{"type":"Polygon","coordinates":[[[1,0],[2,0],[2,1],[1,1],[1,0]]]}}
]}`,
		"config.yaml": `store:
  driver: sqlite
  database_url: runs.db
log:
  level: error
inputs:
  units: units.csv
  areas: areas.csv
  unit_times: unit_times.csv
  area_times: area_times.csv
  boundaries: regions.geojson
scenarios:
  - name: X
    units: x_units.csv
    areas: x_areas.csv
  - name: Y
    areas: y_areas.csv
combine:
  depth: 2
  diff_properties: [admissions]
output:
  formats: [csv]
concurrency: 2
`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(orig) }) //nolint:errcheck
	return dir
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestAssignCommand(t *testing.T) {
	dir := workspace(t)
	out := filepath.Join(dir, "assign")

	require.NoError(t, execute(t, "assign", "--out", out))

	data, err := os.ReadFile(filepath.Join(out, "areas.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "A3,A3,R2,U2,4")
	data, err = os.ReadFile(filepath.Join(out, "units.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "U2,R2,1,0,0,H,5")
}

func TestCombineCommand(t *testing.T) {
	dir := workspace(t)
	out := filepath.Join(dir, "combine")

	require.NoError(t, execute(t, "combine", "--out", out))

	data, err := os.ReadFile(filepath.Join(out, "areas.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "diff_X_minus_Y.admissions")
	_, err = os.Stat(filepath.Join(out, "units.csv"))
	assert.NoError(t, err)
}

func TestColourCommand(t *testing.T) {
	dir := workspace(t)
	out := filepath.Join(dir, "colour")

	require.NoError(t, execute(t, "colour", "--out", out))

	data, err := os.ReadFile(filepath.Join(out, "regions.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "R1,North,0")
	assert.Contains(t, string(data), "R2,South,1")
}

func TestAnalyzeCommand_RecordsRun(t *testing.T) {
	dir := workspace(t)
	out := filepath.Join(dir, "analysis")

	require.NoError(t, execute(t, "analyze", "--label", "weekly", "--out", out))

	for _, name := range []string{"units.csv", "areas.csv", "regions.csv", "catchments.csv"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
	data, err := os.ReadFile(filepath.Join(out, "catchments.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "X,U1,1,0,H,0")
	assert.Contains(t, string(data), "Y,U2,2,1,H,0")
	_, err = os.Stat(filepath.Join(dir, "runs.db"))
	assert.NoError(t, err)

	require.NoError(t, execute(t, "runs", "list", "--label", "weekly"))
	require.NoError(t, execute(t, "runs", "stats"))
}

func TestAnalyzeCommand_InvalidConfig(t *testing.T) {
	dir := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("combine:\n  depth: 5\n"), 0o644))

	err := execute(t, "analyze", "--out", filepath.Join(dir, "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inputs.units is required")
	assert.Contains(t, err.Error(), "combine.depth must be 2 or 3")
}
