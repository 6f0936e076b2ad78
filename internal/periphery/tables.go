package periphery

import (
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/scenario"
)

// Property names read from and written to combined tables.
const (
	PropSelected              = "selected"
	PropRegionCode            = "region_code"
	PropUnitID                = "unit_id"
	PropPeripheryUnit         = "periphery_unit"
	PropContainsUnit          = "contains_unit"
	PropContainsPeripheryUnit = "contains_periphery_unit"
	PropContainsPeripheryArea = "contains_periphery_area"
)

// TableResult is the outcome of LinkTables.
type TableResult struct {
	// Units is the unit table with a periphery_unit flag per scenario.
	Units *scenario.Table
	// Regions has one row per region code and three flags per scenario.
	Regions *scenario.Table
	// Results is keyed by scenario name.
	Results map[string]*Result
}

// LinkTables runs Link for every raw scenario of combined unit and area
// tables. Unit rows are unit ids; area rows are area ids. Both read
// region_code, and areas read their assigned unit from unit_id, from the
// scenario itself or from "any". Region rows are regionCodes, or every
// region code seen when regionCodes is empty.
func LinkTables(units, areas *scenario.Table, regionCodes []string) (*TableResult, error) {
	if units == nil || areas == nil {
		return nil, eris.New("periphery: unit and area tables are required")
	}

	scenarios := model.RawScenarios(append(units.Scenarios(), areas.Scenarios()...))
	if len(regionCodes) == 0 {
		regionCodes = collectRegions(units, areas, scenarios)
	}
	regions, err := scenario.NewTable(units.Depth(), regionCodes)
	if err != nil {
		return nil, eris.Wrap(err, "periphery: region table")
	}

	out := &TableResult{
		Units:   units.Clone(),
		Regions: regions,
		Results: make(map[string]*Result, len(scenarios)),
	}
	for _, s := range scenarios {
		us, err := unitsFromTable(units, s)
		if err != nil {
			return nil, err
		}
		as, err := areasFromTable(areas, s)
		if err != nil {
			return nil, err
		}
		res := Link(s, us, as)
		out.Results[s] = res

		flags := make([]bool, units.Len())
		for i, id := range units.Rows() {
			flags[i] = res.IsPeripheryUnit(id)
		}
		if err := out.Units.Add(scenario.NewFlagColumn(scenario.Key{Scenario: s, Property: PropPeripheryUnit}, flags)); err != nil {
			return nil, eris.Wrapf(err, "periphery: scenario %s", s)
		}

		cu := make([]bool, len(regionCodes))
		cpu := make([]bool, len(regionCodes))
		cpa := make([]bool, len(regionCodes))
		for i, code := range regionCodes {
			f := res.FlagsFor(code)
			cu[i], cpu[i], cpa[i] = f.ContainsUnit, f.ContainsPeripheryUnit, f.ContainsPeripheryArea
		}
		for _, c := range []*scenario.Column{
			scenario.NewFlagColumn(scenario.Key{Scenario: s, Property: PropContainsUnit}, cu),
			scenario.NewFlagColumn(scenario.Key{Scenario: s, Property: PropContainsPeripheryUnit}, cpu),
			scenario.NewFlagColumn(scenario.Key{Scenario: s, Property: PropContainsPeripheryArea}, cpa),
		} {
			if err := out.Regions.Add(c); err != nil {
				return nil, eris.Wrapf(err, "periphery: scenario %s", s)
			}
		}
	}
	out.Units.SortColumns()
	return out, nil
}

func unitsFromTable(t *scenario.Table, s string) ([]model.Unit, error) {
	region, ok := t.Lookup(s, PropRegionCode, "")
	if !ok {
		return nil, eris.Wrapf(&model.UnknownColumnError{Column: PropRegionCode, Source: "units"}, "periphery: scenario %s", s)
	}
	sel, hasSel := t.Lookup(s, PropSelected, "")

	rows := t.Rows()
	out := make([]model.Unit, len(rows))
	for i, id := range rows {
		out[i] = model.Unit{ID: id, RegionCode: CellString(region, i)}
		if hasSel {
			out[i].Selected = sel.IsSet(i)
		}
	}
	return out, nil
}

func areasFromTable(t *scenario.Table, s string) ([]model.Area, error) {
	region, ok := t.Lookup(s, PropRegionCode, "")
	if !ok {
		return nil, eris.Wrapf(&model.UnknownColumnError{Column: PropRegionCode, Source: "areas"}, "periphery: scenario %s", s)
	}
	unit, ok := t.Lookup(s, PropUnitID, "")
	if !ok {
		return nil, eris.Wrapf(&model.UnknownColumnError{Column: PropUnitID, Source: "areas"}, "periphery: scenario %s", s)
	}
	sel, hasSel := t.Lookup(s, PropSelected, "")

	rows := t.Rows()
	out := make([]model.Area, len(rows))
	for i, id := range rows {
		out[i] = model.Area{
			ID:             id,
			RegionCode:     CellString(region, i),
			AssignedUnitID: CellString(unit, i),
		}
		if hasSel {
			out[i].Selected = sel.IsSet(i)
		}
	}
	return out, nil
}

func collectRegions(units, areas *scenario.Table, scenarios []string) []string {
	seen := make(map[string]bool)
	for _, t := range []*scenario.Table{units, areas} {
		for _, s := range append([]string{model.ScenarioAny}, scenarios...) {
			c, ok := t.Column(scenario.Key{Scenario: s, Property: PropRegionCode})
			if !ok {
				continue
			}
			for i := 0; i < c.Len(); i++ {
				if v := CellString(c, i); v != "" {
					seen[v] = true
				}
			}
		}
	}
	return sortedSet(seen)
}

// CellString renders a cell as an identifier. Missing cells are "" and
// numeric codes lose any trailing ".0".
func CellString(c *scenario.Column, i int) string {
	if s, ok := c.Text(i); ok {
		return s
	}
	if v, ok := c.Float(i); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
