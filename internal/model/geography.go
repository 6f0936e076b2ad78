// Package model defines the shared records passed between the catchment
// analysis stages: units, areas, regions, scenarios and analysis runs.
package model

import "maps"

// NoTransfer is the transfer unit sentinel for units that cannot transfer
// patients onwards. Its travel time is always nil, never zero.
const NoTransfer = "none"

// Unit is a service-providing site (e.g. a hospital) identified by a
// postcode-like id.
type Unit struct {
	ID         string `json:"unit_id"`
	RegionCode string `json:"region_code"`

	Primary bool `json:"use_primary"` // offers the primary service
	Hub     bool `json:"use_hub"`     // offers the hub service
	Mobile  bool `json:"use_mobile"`  // offers the mobile service

	Selected bool `json:"selected"`

	// TransferUnitID is empty until resolved, then either a hub unit id or
	// NoTransfer.
	TransferUnitID  string   `json:"transfer_unit_id,omitempty"`
	TransferMinutes *float64 `json:"transfer_unit_travel_time,omitempty"`

	// Periphery is keyed by scenario name.
	Periphery map[string]bool `json:"periphery,omitempty"`
}

// HasTransfer reports whether the unit was resolved to a real hub unit.
func (u Unit) HasTransfer() bool {
	return u.TransferUnitID != "" && u.TransferUnitID != NoTransfer
}

// Clone returns a copy of u that shares no maps or pointers with it.
func (u Unit) Clone() Unit {
	u.Periphery = maps.Clone(u.Periphery)
	if u.TransferMinutes != nil {
		m := *u.TransferMinutes
		u.TransferMinutes = &m
	}
	return u
}

// Area is the smallest geographic zone used for demand modelling.
type Area struct {
	ID             string  `json:"area_id"`
	Code           string  `json:"area_code"`
	AssignedUnitID string  `json:"unit_id"`
	Minutes        float64 `json:"unit_travel_time"`
	RegionCode     string  `json:"region_code"`
	Selected       bool    `json:"selected"`
}

// RegionFlags are the periphery flags of one region in one scenario.
type RegionFlags struct {
	ContainsUnit          bool `json:"contains_unit"`
	ContainsPeripheryUnit bool `json:"contains_periphery_unit"`
	ContainsPeripheryArea bool `json:"contains_periphery_area"`
}

// Region is an administrative grouping of areas and units.
type Region struct {
	Code string `json:"region_code"`
	Name string `json:"region"`

	// Flags is keyed by scenario name.
	Flags map[string]RegionFlags `json:"flags,omitempty"`

	// ColorIndex is global, not per scenario.
	ColorIndex int `json:"colour_ind"`
}

// Clone returns a copy of r with its own Flags map.
func (r Region) Clone() Region {
	r.Flags = maps.Clone(r.Flags)
	return r
}

// SetFlags records the flags for one scenario, allocating the map on first use.
func (r *Region) SetFlags(scenario string, f RegionFlags) {
	if r.Flags == nil {
		r.Flags = make(map[string]RegionFlags)
	}
	r.Flags[scenario] = f
}

// Catchment is the set of areas one unit serves in one scenario. Colour
// indices are per scenario: neighbouring catchments never share
// ColourIndex, and catchments feeding the same transfer unit share
// TransferColourIndex.
type Catchment struct {
	Scenario            string `json:"scenario"`
	UnitID              string `json:"unit_id"`
	Areas               int    `json:"areas"`
	TransferUnitID      string `json:"transfer_unit_id"`
	ColourIndex         int    `json:"colour_ind"`
	TransferColourIndex int    `json:"transfer_colour_ind"`
}
