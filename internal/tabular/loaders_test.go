package tabular

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/scenario"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseUnits_Aliases(t *testing.T) {
	records := [][]string{
		{"Postcode", "region_code", "use_ivt", "use_mt", "use_msu", "selected", "transfer_unit_postcode"},
		{"AB1", "R1", "1", "0", "0", "1", "nearest"},
		{"CD2", "R2", "1", "1", "", "0", ""},
		{"", "", "", "", "", "", ""},
		{"EF3", "R2", "true", "false", "1", "", "none"},
	}
	got, err := ParseUnits(records)
	require.NoError(t, err)

	require.Len(t, got.Units, 3)
	assert.Equal(t, model.Unit{ID: "AB1", RegionCode: "R1", Primary: true, Selected: true}, got.Units[0])
	assert.Equal(t, model.Unit{ID: "CD2", RegionCode: "R2", Primary: true, Hub: true}, got.Units[1])
	assert.Equal(t, model.Unit{ID: "EF3", RegionCode: "R2", Primary: true, Mobile: true}, got.Units[2])
	assert.Equal(t, map[string]string{"AB1": "nearest", "EF3": "none"}, got.Transfers)
}

func TestParseUnits_Errors(t *testing.T) {
	_, err := ParseUnits(nil)
	require.Error(t, err)

	_, err = ParseUnits([][]string{{"region_code", "use_primary"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnknownColumn))

	_, err = ParseUnits([][]string{{"unit_id", "use_primary"}, {"U1", "1"}, {"U1", "0"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate unit id")

	_, err = ParseUnits([][]string{{"unit_id", "use_primary"}, {"U1", "maybe"}})
	require.Error(t, err)
}

func TestParseAreas(t *testing.T) {
	records := [][]string{
		{"lsoa", "lsoa_code", "region_code", "unit_postcode", "unit_travel_time", "selected"},
		{"Area One", "E01", "R1", "U1", "12.5", "1"},
		{"Area Two", "", "R2", "", "", ""},
	}
	got, err := ParseAreas(records)
	require.NoError(t, err)
	assert.Equal(t, []model.Area{
		{ID: "Area One", Code: "E01", RegionCode: "R1", AssignedUnitID: "U1", Minutes: 12.5, Selected: true},
		{ID: "Area Two", Code: "Area Two", RegionCode: "R2"},
	}, got)

	_, err = ParseAreas([][]string{{"lsoa", "travel_time"}, {"a", "soon"}})
	require.Error(t, err)
}

func TestParseRegionsAndAreaRegions(t *testing.T) {
	regions, err := ParseRegions([][]string{
		{"region_code", "region"},
		{"R1", "North"},
		{"R1", "North again"},
		{"R2", "South"},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.Region{{Code: "R1", Name: "North"}, {Code: "R2", Name: "South"}}, regions)

	lookup, err := ParseAreaRegions([][]string{{"area_id", "region_code"}, {"a1", "R1"}, {"a2", "R2"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a1": "R1", "a2": "R2"}, lookup)

	_, err = ParseAreaRegions([][]string{{"area_id"}})
	require.Error(t, err)
}

func TestParseMatrix(t *testing.T) {
	m, err := ParseMatrix("area_times", [][]string{
		{"area_id", "U1", "U2"},
		{"a1", "10", "15"},
		{"a2", "8", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"U1", "U2"}, m.Columns())
	v, ok, err := m.Time("a2", "U2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, math.IsNaN(v) || v == 0)

	unit, minutes, err := m.Nearest("a1", []string{"U1", "U2"})
	require.NoError(t, err)
	assert.Equal(t, "U1", unit)
	assert.Equal(t, 10.0, minutes)

	_, err = ParseMatrix("bad", [][]string{{"id", "U1"}, {"a1", "x"}})
	require.Error(t, err)
	_, err = ParseMatrix("empty", nil)
	require.Error(t, err)
}

func TestParseScenario_Stats(t *testing.T) {
	records := [][]string{
		{"area_id", "admissions", "admissions", "region_code"},
		{"", "mean", "std", ""},
		{"a1", "12", "2", "R1"},
		{"a2", "9", "", "R2"},
	}
	flat, err := ParseScenario(records, scenario.DepthStats)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, flat.IDs)
	require.Len(t, flat.Columns, 3)
	assert.Equal(t, scenario.FlatColumn{Property: "admissions", Subtype: "std", Cells: []string{"2", ""}}, flat.Columns[1])
	assert.Equal(t, "", flat.Columns[2].Subtype)
}

func TestLoadScenarioTable_CSV(t *testing.T) {
	path := writeFile(t, "x.csv", "unit_id,selected,admissions\nU1,1,40\nU2,0,\n")
	tbl, err := LoadScenarioTable(context.Background(), path, "X", scenario.DepthScalar, scenario.DefaultFlags)
	require.NoError(t, err)

	sel, ok := tbl.Column(scenario.Key{Scenario: "X", Property: "selected"})
	require.True(t, ok)
	assert.Equal(t, scenario.Flag, sel.Kind())
	adm, ok := tbl.Column(scenario.Key{Scenario: "X", Property: "admissions"})
	require.True(t, ok)
	assert.Nil(t, adm.Value(1))
}

func TestLoadUnits_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("units")
	require.NoError(t, err)
	for _, rowData := range [][]string{
		{"unit_id", "region_code", "use_primary", "use_hub"},
		{"U1", "R1", "1", "1"},
		{"U2", "R1", "1", "0"},
	} {
		row := sheet.AddRow()
		for _, v := range rowData {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "units.xlsx")
	require.NoError(t, f.Save(path))

	got, err := LoadUnits(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got.Units, 2)
	assert.True(t, got.Units[0].Hub)
	assert.False(t, got.Units[1].Hub)
}

func TestReadFile_TSVAndMissing(t *testing.T) {
	path := writeFile(t, "regions.tsv", "region_code\tregion\nR1\tNorth\n")
	regions, err := LoadRegions(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []model.Region{{Code: "R1", Name: "North"}}, regions)

	_, err = ReadFile(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)

	_, err = ReadXLSX(path, "")
	require.Error(t, err)
}
