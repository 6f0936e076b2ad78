// Package export flattens combined scenario tables and region results into
// row-oriented records and writes them as CSV, JSON or XLSX.
package export

import (
	"sort"
	"strconv"

	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/scenario"
)

// IDColumn is the leading header of every flattened table.
const IDColumn = "id"

// Records is a flat table: a header and rows of values. Values are nil,
// float64, int8, int, bool or string.
type Records struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Flatten turns a labelled table into records whose headers are
// "scenario.property" or "scenario.property.subtype", after a leading id
// column. Column order is the table's.
func Flatten(name string, t *scenario.Table) Records {
	cols := t.Columns()
	rec := Records{Name: name, Header: make([]string, 0, len(cols)+1)}
	rec.Header = append(rec.Header, IDColumn)
	for _, c := range cols {
		rec.Header = append(rec.Header, c.Key().String())
	}

	for i, id := range t.Rows() {
		row := make([]any, 0, len(cols)+1)
		row = append(row, id)
		for _, c := range cols {
			row = append(row, c.Value(i))
		}
		rec.Rows = append(rec.Rows, row)
	}
	return rec
}

// RegionRecords lists every region with its colour index and, per
// scenario, its three periphery flags as 0/1.
func RegionRecords(regions []model.Region, scenarios []string) Records {
	scenarios = append([]string(nil), scenarios...)
	sort.Strings(scenarios)

	rec := Records{Name: "regions", Header: []string{"region_code", "region", "colour_ind"}}
	for _, s := range scenarios {
		rec.Header = append(rec.Header,
			s+".contains_unit",
			s+".contains_periphery_unit",
			s+".contains_periphery_area",
		)
	}

	sorted := append([]model.Region(nil), regions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })
	for _, r := range sorted {
		row := []any{r.Code, r.Name, r.ColorIndex}
		for _, s := range scenarios {
			f := r.Flags[s]
			row = append(row, flag(f.ContainsUnit), flag(f.ContainsPeripheryUnit), flag(f.ContainsPeripheryArea))
		}
		rec.Rows = append(rec.Rows, row)
	}
	return rec
}

// UnitRecords lists units with their resolved transfer unit and time.
func UnitRecords(units []model.Unit) Records {
	rec := Records{Name: "units", Header: []string{
		"unit_id", "region_code", "use_primary", "use_hub", "use_mobile",
		"transfer_unit_id", "transfer_unit_travel_time",
	}}
	for _, u := range units {
		var minutes any
		if u.TransferMinutes != nil {
			minutes = *u.TransferMinutes
		}
		rec.Rows = append(rec.Rows, []any{
			u.ID, u.RegionCode, flag(u.Primary), flag(u.Hub), flag(u.Mobile), u.TransferUnitID, minutes,
		})
	}
	return rec
}

// AreaRecords lists areas with their assigned unit and travel time.
func AreaRecords(areas []model.Area) Records {
	rec := Records{Name: "areas", Header: []string{"area_id", "area_code", "region_code", "unit_id", "unit_travel_time"}}
	for _, a := range areas {
		var unit any
		if a.AssignedUnitID != "" {
			unit = a.AssignedUnitID
		}
		rec.Rows = append(rec.Rows, []any{a.ID, a.Code, a.RegionCode, unit, a.Minutes})
	}
	return rec
}

// CatchmentRecords lists coloured unit catchments in the order given. The
// transfer unit is null for catchments that transfer nowhere.
func CatchmentRecords(catchments []model.Catchment) Records {
	rec := Records{Name: "catchments", Header: []string{
		"scenario", "unit_id", "areas", "colour_ind", "transfer_unit_id", "transfer_colour_ind",
	}}
	for _, c := range catchments {
		var transfer any
		if c.TransferUnitID != "" {
			transfer = c.TransferUnitID
		}
		rec.Rows = append(rec.Rows, []any{c.Scenario, c.UnitID, c.Areas, c.ColourIndex, transfer, c.TransferColourIndex})
	}
	return rec
}

func flag(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

// formatValue renders v for text outputs. nil becomes the empty string.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int8:
		return strconv.Itoa(int(x))
	case int:
		return strconv.Itoa(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return ""
	}
}
