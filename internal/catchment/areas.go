package catchment

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/traveltime"
)

// Assignment is the nearest unit chosen for one area.
type Assignment struct {
	AreaID  string
	UnitID  string
	Minutes float64
}

// AreaResult is the outcome of AssignAreas.
type AreaResult struct {
	Assignments []Assignment
	Errors      []error
}

// AssignAreas picks the nearest candidate unit for every row of times.
// Candidates are tried in the given order so ties go to the earlier unit.
// An unknown candidate fails the whole call; rows with no route are
// collected as errors and skipped.
func AssignAreas(times *traveltime.Matrix, candidates []string) (*AreaResult, error) {
	if times == nil {
		return nil, eris.New("catchment: no area travel-time matrix")
	}
	if len(candidates) == 0 {
		return nil, eris.New("catchment: no candidate units")
	}
	for _, c := range candidates {
		if !times.HasColumn(c) {
			return nil, eris.Wrap(&model.UnknownColumnError{Column: c, Source: times.Name()}, "catchment: assign areas")
		}
	}

	rows := times.Rows()
	sort.Strings(rows)

	res := &AreaResult{Assignments: make([]Assignment, 0, len(rows))}
	for _, id := range rows {
		unit, minutes, err := times.Nearest(id, candidates)
		if err != nil {
			zap.L().Warn("catchment: area unassigned", zap.String("area_id", id), zap.Error(err))
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Assignments = append(res.Assignments, Assignment{AreaID: id, UnitID: unit, Minutes: minutes})
	}
	return res, nil
}

// PrimaryUnits returns ids of units offering the primary service, in
// unit-list order.
func PrimaryUnits(units []model.Unit) []string {
	var ids []string
	for _, u := range units {
		if u.Primary {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

// ApplyAssignments copies areas and fills AssignedUnitID and Minutes from
// assignments. Areas without an assignment are returned unchanged.
func ApplyAssignments(areas []model.Area, assignments []Assignment) []model.Area {
	byArea := make(map[string]Assignment, len(assignments))
	for _, a := range assignments {
		byArea[a.AreaID] = a
	}
	out := make([]model.Area, len(areas))
	for i, a := range areas {
		if as, ok := byArea[a.ID]; ok {
			a.AssignedUnitID = as.UnitID
			a.Minutes = as.Minutes
		}
		out[i] = a
	}
	return out
}
