package tabular

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/scenario"
	"github.com/sells-group/catchment-cli/internal/traveltime"
)

// Column aliases accepted in input tables. The first alias is the
// canonical name.
var (
	unitIDCols       = []string{"unit_id", "postcode", "unit"}
	regionCodeCols   = []string{"region_code"}
	regionNameCols   = []string{"region", "region_name"}
	primaryCols      = []string{"use_primary", "use_ivt"}
	hubCols          = []string{"use_hub", "use_mt"}
	mobileCols       = []string{"use_mobile", "use_msu"}
	selectedCols     = []string{"selected"}
	transferCols     = []string{"transfer_unit_id", "transfer_unit_postcode"}
	areaIDCols       = []string{"area_id", "lsoa"}
	areaCodeCols     = []string{"area_code", "lsoa_code"}
	assignedUnitCols = []string{"unit_id", "unit_postcode"}
)

// UnitTable is the parsed unit list.
type UnitTable struct {
	Units []model.Unit
	// Transfers holds the raw transfer_unit_id cell of every unit that has
	// one, keyed by unit id.
	Transfers map[string]string
}

// ParseUnits parses unit records. The first record is the header.
func ParseUnits(records [][]string) (*UnitTable, error) {
	if len(records) == 0 {
		return nil, eris.New("tabular: units: empty table")
	}
	h, err := newHeader("units", records[0])
	if err != nil {
		return nil, err
	}
	idCol, err := h.require(unitIDCols...)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: parse units")
	}
	regionCol := h.find(regionCodeCols...)
	primaryCol, err := h.require(primaryCols...)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: parse units")
	}
	hubCol := h.find(hubCols...)
	mobileCol := h.find(mobileCols...)
	selectedCol := h.find(selectedCols...)
	transferCol := h.find(transferCols...)

	out := &UnitTable{Transfers: make(map[string]string)}
	seen := make(map[string]bool)
	for n, row := range records[1:] {
		if isBlankRow(row) {
			continue
		}
		id := cell(row, idCol)
		if id == "" {
			return nil, eris.Errorf("tabular: units row %d: blank unit id", n+2)
		}
		if seen[id] {
			return nil, eris.Errorf("tabular: units row %d: duplicate unit id %q", n+2, id)
		}
		seen[id] = true

		u := model.Unit{ID: id, RegionCode: cell(row, regionCol)}
		flags := []struct {
			col int
			dst *bool
		}{
			{primaryCol, &u.Primary},
			{hubCol, &u.Hub},
			{mobileCol, &u.Mobile},
			{selectedCol, &u.Selected},
		}
		for _, f := range flags {
			if f.col < 0 {
				continue
			}
			v, err := parseBool(cell(row, f.col))
			if err != nil {
				return nil, eris.Wrapf(err, "tabular: units row %d", n+2)
			}
			*f.dst = v
		}
		if transferCol >= 0 {
			if t := cell(row, transferCol); t != "" {
				out.Transfers[id] = t
			}
		}
		out.Units = append(out.Units, u)
	}
	return out, nil
}

// ParseAreas parses area records. assigned unit and travel time columns are
// optional.
func ParseAreas(records [][]string) ([]model.Area, error) {
	if len(records) == 0 {
		return nil, eris.New("tabular: areas: empty table")
	}
	h, err := newHeader("areas", records[0])
	if err != nil {
		return nil, err
	}
	idCol, err := h.require(areaIDCols...)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: parse areas")
	}
	codeCol := h.find(areaCodeCols...)
	regionCol := h.find(regionCodeCols...)
	selectedCol := h.find(selectedCols...)
	unitCol := h.find(assignedUnitCols...)
	timeCol := h.find("unit_travel_time", "travel_time")

	var out []model.Area
	seen := make(map[string]bool)
	for n, row := range records[1:] {
		if isBlankRow(row) {
			continue
		}
		id := cell(row, idCol)
		if id == "" {
			return nil, eris.Errorf("tabular: areas row %d: blank area id", n+2)
		}
		if seen[id] {
			return nil, eris.Errorf("tabular: areas row %d: duplicate area id %q", n+2, id)
		}
		seen[id] = true

		a := model.Area{
			ID:             id,
			Code:           cell(row, codeCol),
			RegionCode:     cell(row, regionCol),
			AssignedUnitID: cell(row, unitCol),
		}
		if a.Code == "" {
			a.Code = id
		}
		if selectedCol >= 0 {
			if a.Selected, err = parseBool(cell(row, selectedCol)); err != nil {
				return nil, eris.Wrapf(err, "tabular: areas row %d", n+2)
			}
		}
		if s := cell(row, timeCol); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "tabular: areas row %d: travel time", n+2)
			}
			a.Minutes = v
		}
		out = append(out, a)
	}
	return out, nil
}

// ParseRegions parses region records (region_code, region).
func ParseRegions(records [][]string) ([]model.Region, error) {
	if len(records) == 0 {
		return nil, eris.New("tabular: regions: empty table")
	}
	h, err := newHeader("regions", records[0])
	if err != nil {
		return nil, err
	}
	codeCol, err := h.require(regionCodeCols...)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: parse regions")
	}
	nameCol := h.find(regionNameCols...)

	var out []model.Region
	seen := make(map[string]bool)
	for _, row := range records[1:] {
		code := cell(row, codeCol)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, model.Region{Code: code, Name: cell(row, nameCol)})
	}
	return out, nil
}

// ParseAreaRegions parses a lookup of area id to region code.
func ParseAreaRegions(records [][]string) (map[string]string, error) {
	if len(records) == 0 {
		return nil, eris.New("tabular: area regions: empty table")
	}
	h, err := newHeader("area regions", records[0])
	if err != nil {
		return nil, err
	}
	idCol, err := h.require(areaIDCols...)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: parse area regions")
	}
	regionCol, err := h.require(regionCodeCols...)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: parse area regions")
	}

	out := make(map[string]string, len(records)-1)
	for _, row := range records[1:] {
		if id := cell(row, idCol); id != "" {
			out[id] = cell(row, regionCol)
		}
	}
	return out, nil
}

// ParseMatrix parses a travel-time matrix. The header holds column ids
// after a leading label cell; each row starts with its row id. Blank and
// "nan" cells have no route.
func ParseMatrix(name string, records [][]string) (*traveltime.Matrix, error) {
	if len(records) == 0 || len(records[0]) < 2 {
		return nil, eris.Errorf("tabular: matrix %s: no columns", name)
	}
	cols := make([]string, len(records[0])-1)
	for i, c := range records[0][1:] {
		cols[i] = strings.TrimSpace(c)
	}

	var rows []string
	var values [][]float64
	for n, row := range records[1:] {
		if isBlankRow(row) {
			continue
		}
		rows = append(rows, cell(row, 0))
		vals := make([]float64, len(cols))
		for j := range cols {
			s := cell(row, j+1)
			if s == "" || strings.EqualFold(s, "nan") {
				vals[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "tabular: matrix %s row %d column %s", name, n+2, cols[j])
			}
			vals[j] = v
		}
		values = append(values, vals)
	}

	m, err := traveltime.NewMatrix(name, rows, cols, values)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: matrix %s", name)
	}
	return m, nil
}

// ParseScenario parses one scenario output table. The first header row
// holds property names after the id column. A three-axis table has a
// second header row of subtypes, blank for scalar properties.
func ParseScenario(records [][]string, depth int) (scenario.Flat, error) {
	headerRows := 1
	if depth == scenario.DepthStats {
		headerRows = 2
	}
	if len(records) < headerRows {
		return scenario.Flat{}, eris.New("tabular: scenario table is missing its header")
	}
	props := records[0]
	var subtypes []string
	if headerRows == 2 {
		subtypes = records[1]
	}

	type colRef struct {
		pos  int
		prop string
		sub  string
	}
	var refs []colRef
	for i := 1; i < len(props); i++ {
		p := strings.TrimSpace(props[i])
		if p == "" {
			continue
		}
		refs = append(refs, colRef{pos: i, prop: p, sub: cell(subtypes, i)})
	}

	flat := scenario.Flat{Columns: make([]scenario.FlatColumn, len(refs))}
	for i, r := range refs {
		flat.Columns[i] = scenario.FlatColumn{Property: r.prop, Subtype: r.sub}
	}
	for _, row := range records[headerRows:] {
		if isBlankRow(row) {
			continue
		}
		flat.IDs = append(flat.IDs, cell(row, 0))
		for i, r := range refs {
			flat.Columns[i].Cells = append(flat.Columns[i].Cells, cell(row, r.pos))
		}
	}
	return flat, nil
}

// LoadUnits reads and parses a unit file.
func LoadUnits(ctx context.Context, path string) (*UnitTable, error) {
	records, err := ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return ParseUnits(records)
}

// LoadAreas reads and parses an area file.
func LoadAreas(ctx context.Context, path string) ([]model.Area, error) {
	records, err := ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return ParseAreas(records)
}

// LoadRegions reads and parses a region file.
func LoadRegions(ctx context.Context, path string) ([]model.Region, error) {
	records, err := ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return ParseRegions(records)
}

// LoadAreaRegions reads and parses an area-to-region lookup file.
func LoadAreaRegions(ctx context.Context, path string) (map[string]string, error) {
	records, err := ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return ParseAreaRegions(records)
}

// LoadMatrix reads and parses a travel-time matrix file.
func LoadMatrix(ctx context.Context, name, path string) (*traveltime.Matrix, error) {
	records, err := ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return ParseMatrix(name, records)
}

// LoadScenarioTable reads a scenario output file and labels it with name.
func LoadScenarioTable(ctx context.Context, path, name string, depth int, flags []string) (*scenario.Table, error) {
	records, err := ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	flat, err := ParseScenario(records, depth)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: %s", path)
	}
	t, err := scenario.Normalize(name, depth, flat, flags)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: %s", path)
	}
	return t, nil
}
