// Package periphery finds the units and regions drawn into a scenario by
// its selected units and areas without being selected themselves.
package periphery

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/catchment-cli/internal/model"
)

// Result holds the periphery sets of one scenario. Every slice is sorted.
type Result struct {
	Scenario string

	RegionsWithSelectedUnit []string
	RegionsWithSelectedArea []string
	PeripheryUnits          []string
	PeripheryRegions        []string

	// Regions holds the flags of every region named by the sets above.
	Regions map[string]model.RegionFlags
}

// Link computes the periphery sets for one scenario. units and areas carry
// that scenario's selection in their Selected fields. Inputs are not
// modified.
func Link(scenario string, units []model.Unit, areas []model.Area) *Result {
	unitRegion := make(map[string]string, len(units))
	selectedUnit := make(map[string]bool)
	withUnit := make(map[string]bool)
	for _, u := range units {
		unitRegion[u.ID] = u.RegionCode
		if u.Selected {
			selectedUnit[u.ID] = true
			if u.RegionCode != "" {
				withUnit[u.RegionCode] = true
			}
		}
	}

	withArea := make(map[string]bool)
	for _, a := range areas {
		if a.Selected && a.RegionCode != "" {
			withArea[a.RegionCode] = true
		}
	}

	periphery := make(map[string]bool)
	for _, a := range areas {
		if a.AssignedUnitID == "" || !withUnit[a.RegionCode] || selectedUnit[a.AssignedUnitID] {
			continue
		}
		periphery[a.AssignedUnitID] = true
	}

	peripheryRegions := make(map[string]bool)
	for id := range periphery {
		region, ok := unitRegion[id]
		if !ok {
			zap.L().Warn("periphery: assigned unit missing from unit list",
				zap.String("scenario", scenario),
				zap.String("unit_id", id),
			)
			continue
		}
		if region != "" {
			peripheryRegions[region] = true
		}
	}

	res := &Result{
		Scenario:                scenario,
		RegionsWithSelectedUnit: sortedSet(withUnit),
		RegionsWithSelectedArea: sortedSet(withArea),
		PeripheryUnits:          sortedSet(periphery),
		PeripheryRegions:        sortedSet(peripheryRegions),
		Regions:                 make(map[string]model.RegionFlags),
	}
	for code := range withUnit {
		res.Regions[code] = res.FlagsFor(code)
	}
	for code := range withArea {
		res.Regions[code] = res.FlagsFor(code)
	}
	for code := range peripheryRegions {
		res.Regions[code] = res.FlagsFor(code)
	}
	return res
}

// FlagsFor returns the flags of region code in this scenario. Regions that
// take no part are all false.
func (r *Result) FlagsFor(code string) model.RegionFlags {
	unit := contains(r.RegionsWithSelectedUnit, code)
	return model.RegionFlags{
		ContainsUnit:          unit,
		ContainsPeripheryUnit: contains(r.PeripheryRegions, code),
		ContainsPeripheryArea: !unit && contains(r.RegionsWithSelectedArea, code),
	}
}

// IsPeripheryUnit reports whether unit id is a periphery unit.
func (r *Result) IsPeripheryUnit(id string) bool {
	return contains(r.PeripheryUnits, id)
}

// Annotate writes this scenario's flags onto units and regions in place.
// Flags of other scenarios are left untouched.
func (r *Result) Annotate(units []model.Unit, regions []model.Region) {
	for i := range units {
		if units[i].Periphery == nil {
			units[i].Periphery = make(map[string]bool)
		}
		units[i].Periphery[r.Scenario] = r.IsPeripheryUnit(units[i].ID)
	}
	for i := range regions {
		regions[i].SetFlags(r.Scenario, r.FlagsFor(regions[i].Code))
	}
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contains(sorted []string, s string) bool {
	i := sort.SearchStrings(sorted, s)
	return i < len(sorted) && sorted[i] == s
}
