package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/catchment-cli/internal/geo"
	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/scenario"
	"github.com/sells-group/catchment-cli/internal/traveltime"
)

// fixture is a three-region network. U1 sits in R1, U2 and the hub H in
// R2, and U3 in R3 with no route to H. Regions R1, R2 and R3 are unit
// squares in a row.
func fixture(t *testing.T) *Inputs {
	t.Helper()
	nan := math.NaN()

	unitTimes, err := traveltime.NewMatrix("unit_times",
		[]string{"U1", "U2", "U3", "H"},
		[]string{"U1", "U2", "U3", "H"},
		[][]float64{
			{0, 15, 30, 10},
			{15, 0, 25, 5},
			{30, 25, 0, nan},
			{10, 5, nan, 0},
		})
	require.NoError(t, err)

	areaTimes, err := traveltime.NewMatrix("area_times",
		[]string{"A1", "A2", "A3", "A4"},
		[]string{"U1", "U2", "U3", "H"},
		[][]float64{
			{5, 20, 40, 30},
			{12, 9, 40, 30},
			{30, 4, 40, 6},
			{7, 40, 2, 50},
		})
	require.NoError(t, err)

	return &Inputs{
		Units: []model.Unit{
			{ID: "U1", RegionCode: "R1", Primary: true},
			{ID: "U2", RegionCode: "R2", Primary: true},
			{ID: "U3", RegionCode: "R3", Primary: true},
			{ID: "H", RegionCode: "R2", Hub: true},
		},
		Areas: []model.Area{
			{ID: "A1", Code: "a1", RegionCode: "R1"},
			{ID: "A2", Code: "a2"},
			{ID: "A3", Code: "a3", RegionCode: "R2"},
			{ID: "A4", Code: "a4", RegionCode: "R3"},
		},
		AreaRegions: map[string]string{"A2": "R1"},
		Regions: []model.Region{
			{Code: "R1", Name: "North"},
			{Code: "R2", Name: "Middle"},
			{Code: "R3", Name: "South"},
		},
		UnitTimes: unitTimes,
		AreaTimes: areaTimes,
		Boundaries: []geo.Boundary{
			{Code: "R1", Name: "North", Geom: square(0, 0)},
			{Code: "R2", Name: "Middle", Geom: square(1, 0)},
			{Code: "R3", Name: "South", Geom: square(2, 0)},
		},
		UnitScenarios: map[string]*scenario.Table{
			"X": flagTable(t, []string{"U1"}, "selected", []bool{true}),
			"Y": flagTable(t, []string{"U2"}, "selected", []bool{true}),
		},
		AreaScenarios: map[string]*scenario.Table{
			"X": areaScenario(t, []float64{10, 20, 30, 40}, []bool{true, false, false, false}),
			"Y": areaScenario(t, []float64{1, 2, 3, 4}, []bool{false, false, false, true}),
		},
	}
}

func testOptions() Options {
	return Options{
		Label:          "test",
		Depth:          scenario.DepthScalar,
		DiffProperties: []string{"admissions"},
		Concurrency:    2,
	}
}

func square(x, y float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y},
	}})
}

func flagTable(t *testing.T, rows []string, prop string, values []bool) *scenario.Table {
	t.Helper()
	tbl, err := scenario.NewTable(scenario.DepthScalar, rows)
	require.NoError(t, err)
	require.NoError(t, tbl.Add(scenario.NewFlagColumn(scenario.Key{Scenario: "in", Property: prop}, values)))
	return tbl
}

func areaScenario(t *testing.T, admissions []float64, selected []bool) *scenario.Table {
	t.Helper()
	tbl, err := scenario.NewTable(scenario.DepthScalar, []string{"A1", "A2", "A3", "A4"})
	require.NoError(t, err)
	require.NoError(t, tbl.Add(scenario.NewFloatColumn(scenario.Key{Scenario: "in", Property: "admissions"}, admissions)))
	require.NoError(t, tbl.Add(scenario.NewFlagColumn(scenario.Key{Scenario: "in", Property: "selected"}, selected)))
	return tbl
}

func floatAt(t *testing.T, tbl *scenario.Table, key scenario.Key, row string) (float64, bool) {
	t.Helper()
	c, ok := tbl.Column(key)
	require.True(t, ok, "missing column %s", key)
	i, ok := tbl.RowIndex(row)
	require.True(t, ok, "missing row %s", row)
	return c.Float(i)
}

func textAt(t *testing.T, tbl *scenario.Table, key scenario.Key, row string) string {
	t.Helper()
	c, ok := tbl.Column(key)
	require.True(t, ok, "missing column %s", key)
	i, ok := tbl.RowIndex(row)
	require.True(t, ok, "missing row %s", row)
	s, _ := c.Text(i)
	return s
}
