// Package catchment resolves wheel-and-spoke transfer units and assigns
// areas to their nearest unit.
package catchment

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/traveltime"
)

// Override replaces the computed transfer unit of one unit. Exactly one of
// HubID or None is meaningful; None wins when both are set.
type Override struct {
	HubID string
	None  bool
}

// Resolution is the outcome of Resolve. Errors holds per-unit failures;
// the matching units are left with model.NoTransfer.
type Resolution struct {
	Units  []model.Unit
	Errors []error
}

// Resolver assigns each primary-service unit its nearest hub unit.
type Resolver struct {
	times *traveltime.Matrix
}

// NewResolver creates a Resolver over an inter-unit travel-time matrix.
// A nil matrix still applies the non-primary and override rules; only
// units that need a nearest hub are then reported as unresolved.
func NewResolver(times *traveltime.Matrix) *Resolver {
	return &Resolver{times: times}
}

// Resolve returns copies of units with transfer fields filled in.
func (r *Resolver) Resolve(units []model.Unit, overrides map[string]Override) (*Resolution, error) {
	log := zap.L().With(zap.String("component", "catchment.resolver"))
	res := &Resolution{Units: make([]model.Unit, len(units))}

	known := make(map[string]int, len(units))
	var hubs []string
	for i, u := range units {
		known[u.ID] = i
		if u.Hub {
			hubs = append(hubs, u.ID)
		}
	}

	// Overrides naming units we don't have are reported once, sorted for
	// stable output.
	for _, id := range sortedKeys(overrides) {
		if _, ok := known[id]; !ok {
			res.Errors = append(res.Errors, &model.UnknownUnitError{UnitID: id, Reason: "override for unit not in unit list"})
		}
	}

	for i, u := range units {
		u.TransferUnitID = model.NoTransfer
		u.TransferMinutes = nil

		if !u.Primary {
			res.Units[i] = u
			continue
		}

		hubID, minutes, err := r.resolveOne(u.ID, hubs, overrides, known)
		if err != nil {
			log.Warn("catchment: transfer unit unresolved", zap.String("unit_id", u.ID), zap.Error(err))
			res.Errors = append(res.Errors, err)
		} else {
			u.TransferUnitID = hubID
			u.TransferMinutes = minutes
		}
		res.Units[i] = u
	}

	log.Debug("catchment: transfer units resolved",
		zap.Int("units", len(units)),
		zap.Int("hubs", len(hubs)),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

func (r *Resolver) resolveOne(unitID string, hubs []string, overrides map[string]Override, known map[string]int) (string, *float64, error) {
	ov, hasOverride := overrides[unitID]
	switch {
	case hasOverride && ov.None:
		return model.NoTransfer, nil, nil

	case hasOverride && ov.HubID != "":
		if _, ok := known[ov.HubID]; !ok {
			return "", nil, &model.UnknownUnitError{UnitID: ov.HubID, Reason: "transfer override for " + unitID}
		}
		if r.times == nil {
			return ov.HubID, nil, nil
		}
		v, ok, err := r.times.Time(unitID, ov.HubID)
		if err != nil {
			return "", nil, eris.Wrapf(err, "catchment: override transfer time for %s", unitID)
		}
		if !ok {
			return ov.HubID, nil, nil
		}
		return ov.HubID, &v, nil
	}

	if r.times == nil {
		return "", nil, eris.Errorf("catchment: no unit travel times to find a hub for %s", unitID)
	}
	if len(hubs) == 0 {
		return "", nil, eris.Errorf("catchment: no hub units to transfer %s to", unitID)
	}
	hubID, v, err := r.times.Nearest(unitID, hubs)
	if err != nil {
		return "", nil, eris.Wrapf(err, "catchment: nearest hub for %s", unitID)
	}
	return hubID, &v, nil
}
