package periphery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/scenario"
)

// Regions R1..R4. U1 (R1) is selected and catches a1, a2 in R1. a3 in R1 is
// caught by U2 (R2), which makes U2 a periphery unit. a5 is selected and
// lies in R3, which holds no selected unit.
func fixture() ([]model.Unit, []model.Area) {
	units := []model.Unit{
		{ID: "U1", RegionCode: "R1", Selected: true},
		{ID: "U2", RegionCode: "R2"},
		{ID: "U3", RegionCode: "R3"},
		{ID: "U4", RegionCode: "R4"},
	}
	areas := []model.Area{
		{ID: "a1", RegionCode: "R1", AssignedUnitID: "U1", Selected: true},
		{ID: "a2", RegionCode: "R1", AssignedUnitID: "U1", Selected: true},
		{ID: "a3", RegionCode: "R1", AssignedUnitID: "U2", Selected: true},
		{ID: "a4", RegionCode: "R2", AssignedUnitID: "U2"},
		{ID: "a5", RegionCode: "R3", AssignedUnitID: "U3", Selected: true},
		{ID: "a6", RegionCode: "R4", AssignedUnitID: "U4"},
	}
	return units, areas
}

func TestLink(t *testing.T) {
	units, areas := fixture()
	res := Link("X", units, areas)

	assert.Equal(t, []string{"R1"}, res.RegionsWithSelectedUnit)
	assert.Equal(t, []string{"R1", "R3"}, res.RegionsWithSelectedArea)
	assert.Equal(t, []string{"U2"}, res.PeripheryUnits)
	assert.Equal(t, []string{"R2"}, res.PeripheryRegions)

	assert.Equal(t, model.RegionFlags{ContainsUnit: true}, res.FlagsFor("R1"))
	assert.Equal(t, model.RegionFlags{ContainsPeripheryUnit: true}, res.FlagsFor("R2"))
	assert.Equal(t, model.RegionFlags{ContainsPeripheryArea: true}, res.FlagsFor("R3"))
	assert.Equal(t, model.RegionFlags{}, res.FlagsFor("R4"))
	assert.Len(t, res.Regions, 3)
}

func TestLink_PeripheryNeverSelected(t *testing.T) {
	units, areas := fixture()
	// U2 is now selected as well, so it must not be a periphery unit.
	units[1].Selected = true
	res := Link("X", units, areas)

	for _, id := range res.PeripheryUnits {
		for _, u := range units {
			if u.ID == id {
				assert.False(t, u.Selected, "periphery unit %s is selected", id)
			}
		}
	}
	assert.Empty(t, res.PeripheryUnits)
}

func TestLink_NothingSelected(t *testing.T) {
	units, areas := fixture()
	for i := range units {
		units[i].Selected = false
	}
	res := Link("X", units, areas)
	assert.Empty(t, res.RegionsWithSelectedUnit)
	assert.Empty(t, res.PeripheryUnits)
}

func TestAnnotate_ScenarioScoped(t *testing.T) {
	units, areas := fixture()
	regions := []model.Region{{Code: "R1"}, {Code: "R2"}, {Code: "R3"}}

	Link("X", units, areas).Annotate(units, regions)

	units2, areas2 := fixture()
	units2[0].Selected = false
	units2[1].Selected = true
	Link("Y", units2, areas2).Annotate(units, regions)

	assert.True(t, units[1].Periphery["X"])
	assert.False(t, units[1].Periphery["Y"])
	assert.True(t, regions[0].Flags["X"].ContainsUnit)
	assert.False(t, regions[0].Flags["Y"].ContainsUnit)
	assert.True(t, regions[1].Flags["X"].ContainsPeripheryUnit)
	assert.True(t, regions[1].Flags["Y"].ContainsUnit)
}

func TestLinkTables(t *testing.T) {
	units, err := scenario.NewTable(scenario.DepthScalar, []string{"U1", "U2", "U3"})
	require.NoError(t, err)
	require.NoError(t, units.Add(scenario.NewTextColumn(scenario.Key{Scenario: "any", Property: PropRegionCode}, []string{"R1", "R2", "R3"}, nil)))
	require.NoError(t, units.Add(scenario.NewFlagColumn(scenario.Key{Scenario: "X", Property: PropSelected}, []bool{true, false, false})))
	require.NoError(t, units.Add(scenario.NewFlagColumn(scenario.Key{Scenario: "Y", Property: PropSelected}, []bool{false, false, true})))

	areas, err := scenario.NewTable(scenario.DepthScalar, []string{"a1", "a2", "a3"})
	require.NoError(t, err)
	require.NoError(t, areas.Add(scenario.NewTextColumn(scenario.Key{Scenario: "any", Property: PropRegionCode}, []string{"R1", "R1", "R3"}, nil)))
	require.NoError(t, areas.Add(scenario.NewTextColumn(scenario.Key{Scenario: "X", Property: PropUnitID}, []string{"U1", "U2", "U3"}, nil)))
	require.NoError(t, areas.Add(scenario.NewTextColumn(scenario.Key{Scenario: "Y", Property: PropUnitID}, []string{"U1", "U1", "U2"}, nil)))
	require.NoError(t, areas.Add(scenario.NewFlagColumn(scenario.Key{Scenario: "X", Property: PropSelected}, []bool{true, true, false})))

	out, err := LinkTables(units, areas, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"R1", "R2", "R3"}, out.Regions.Rows())
	assert.Equal(t, []string{"U2"}, out.Results["X"].PeripheryUnits)
	assert.Equal(t, []string{"U2"}, out.Results["Y"].PeripheryUnits)

	pu, ok := out.Units.Column(scenario.Key{Scenario: "X", Property: PropPeripheryUnit})
	require.True(t, ok)
	assert.Equal(t, []any{int8(0), int8(1), int8(0)}, []any{pu.Value(0), pu.Value(1), pu.Value(2)})

	cu, ok := out.Regions.Column(scenario.Key{Scenario: "Y", Property: PropContainsUnit})
	require.True(t, ok)
	assert.Equal(t, []any{int8(0), int8(0), int8(1)}, []any{cu.Value(0), cu.Value(1), cu.Value(2)})

	_, ok = units.Column(scenario.Key{Scenario: "X", Property: PropPeripheryUnit})
	assert.False(t, ok, "input table is not modified")
}

func TestLinkTables_MissingColumns(t *testing.T) {
	units, err := scenario.NewTable(scenario.DepthScalar, []string{"U1"})
	require.NoError(t, err)
	require.NoError(t, units.Add(scenario.NewFlagColumn(scenario.Key{Scenario: "X", Property: PropSelected}, []bool{true})))
	areas, err := scenario.NewTable(scenario.DepthScalar, []string{"a1"})
	require.NoError(t, err)

	_, err = LinkTables(units, areas, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnknownColumn)
}
