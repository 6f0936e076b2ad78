package pipeline

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catchment-cli/internal/colour"
	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/periphery"
	"github.com/sells-group/catchment-cli/internal/scenario"
)

// Per-scenario catchment colour columns on the unit table.
const (
	PropCatchmentColour = PropColourIndex
	PropTransferColour  = "transfer_colour_ind"
)

// ColourCatchments colours the unit catchments of one raw scenario. A
// catchment is the set of areas whose unit_id, read from the scenario or
// from "any", names the unit. Catchments touch when they share a region
// or sit in neighbouring regions. Catchments are then grouped by their
// unit's transfer unit, or by the unit itself when it has none, and the
// groups are coloured the same way. Results are sorted by unit id.
func ColourCatchments(units, areas *scenario.Table, s string, regionNeighbours map[string][]string) ([]model.Catchment, error) {
	if units == nil || areas == nil {
		return nil, eris.New("pipeline: catchments need unit and area tables")
	}
	unitCol, ok := areas.Lookup(s, periphery.PropUnitID, "")
	if !ok {
		return nil, eris.Wrapf(&model.UnknownColumnError{Column: periphery.PropUnitID, Source: "areas"}, "pipeline: catchments for %s", s)
	}
	regionCol, ok := areas.Lookup(s, periphery.PropRegionCode, "")
	if !ok {
		return nil, eris.Wrapf(&model.UnknownColumnError{Column: periphery.PropRegionCode, Source: "areas"}, "pipeline: catchments for %s", s)
	}

	sizes := make(map[string]int)
	inRegion := make(map[string]map[string]bool)
	for i := range areas.Rows() {
		unit := periphery.CellString(unitCol, i)
		if unit == "" {
			continue
		}
		sizes[unit]++
		region := periphery.CellString(regionCol, i)
		if region == "" {
			continue
		}
		if inRegion[region] == nil {
			inRegion[region] = make(map[string]bool)
		}
		inRegion[region][unit] = true
	}
	members := make(map[string][]string, len(inRegion))
	for region, set := range inRegion {
		members[region] = sortedKeys(set)
	}

	ids := sortedKeys(sizes)
	touching := colour.LiftNeighbours(members, regionNeighbours)
	colours := colour.Assign(ids, touching)

	transferCol, hasTransfer := units.Lookup(s, PropTransferUnitID, "")
	groupOf := make(map[string]string, len(ids))
	for _, id := range ids {
		groupOf[id] = id
		if !hasTransfer {
			continue
		}
		i, ok := units.RowIndex(id)
		if !ok {
			continue
		}
		if t := periphery.CellString(transferCol, i); t != "" && t != model.NoTransfer {
			groupOf[id] = t
		}
	}
	groups := colour.GroupNeighbours(groupOf, touching)
	groupIDs := make([]string, 0, len(groups))
	for g := range groups {
		groupIDs = append(groupIDs, g)
	}
	sort.Strings(groupIDs)
	groupColours := colour.Assign(groupIDs, groups)

	out := make([]model.Catchment, 0, len(ids))
	for _, id := range ids {
		c := model.Catchment{
			Scenario:            s,
			UnitID:              id,
			Areas:               sizes[id],
			ColourIndex:         colours[id],
			TransferColourIndex: groupColours[groupOf[id]],
		}
		if groupOf[id] != id {
			c.TransferUnitID = groupOf[id]
		}
		out = append(out, c)
	}
	return out, nil
}

// addCatchmentColumns writes one scenario's catchment colours to the unit
// table. Units serving no area in the scenario are null.
func addCatchmentColumns(t *scenario.Table, s string, catchments []model.Catchment) error {
	rows := t.Rows()
	own := make([]float64, len(rows))
	transfer := make([]float64, len(rows))
	for i := range rows {
		own[i], transfer[i] = math.NaN(), math.NaN()
	}
	for _, c := range catchments {
		i, ok := t.RowIndex(c.UnitID)
		if !ok {
			continue
		}
		own[i] = float64(c.ColourIndex)
		transfer[i] = float64(c.TransferColourIndex)
	}
	for _, col := range []*scenario.Column{
		scenario.NewFloatColumn(scenario.Key{Scenario: s, Property: PropCatchmentColour}, own),
		scenario.NewFloatColumn(scenario.Key{Scenario: s, Property: PropTransferColour}, transfer),
	} {
		if err := t.Add(col); err != nil {
			return eris.Wrapf(err, "pipeline: catchment colours for %s", s)
		}
	}
	return nil
}
