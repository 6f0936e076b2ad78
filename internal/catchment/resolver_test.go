package catchment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/traveltime"
)

func unitTimes(t *testing.T) *traveltime.Matrix {
	t.Helper()
	ids := []string{"S1", "S2", "S3", "H1", "H2"}
	m, err := traveltime.NewMatrix("unit_times", ids, ids, [][]float64{
		{0, 12, 30, 25, 40},
		{12, 0, 18, 35, 20},
		{30, 18, 0, 22, 22},
		{25, 35, 22, 0, 50},
		{40, 20, 22, 50, 0},
	})
	require.NoError(t, err)
	return m
}

func testUnits() []model.Unit {
	return []model.Unit{
		{ID: "S1", Primary: true},
		{ID: "S2", Primary: true},
		{ID: "S3", Primary: true},
		{ID: "H1", Primary: true, Hub: true},
		{ID: "H2", Primary: true, Hub: true},
		{ID: "M1", Mobile: true},
	}
}

func byID(units []model.Unit) map[string]model.Unit {
	out := make(map[string]model.Unit, len(units))
	for _, u := range units {
		out[u.ID] = u
	}
	return out
}

func TestResolve_NearestHub(t *testing.T) {
	r := NewResolver(unitTimes(t))

	res, err := r.Resolve(testUnits(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)

	got := byID(res.Units)
	assert.Equal(t, "H1", got["S1"].TransferUnitID)
	assert.InDelta(t, 25.0, *got["S1"].TransferMinutes, 1e-9)
	assert.Equal(t, "H2", got["S2"].TransferUnitID)
	// S3 ties at 22; H1 comes first in the unit list.
	assert.Equal(t, "H1", got["S3"].TransferUnitID)
	// Hubs transfer to themselves.
	assert.Equal(t, "H1", got["H1"].TransferUnitID)
	assert.InDelta(t, 0.0, *got["H1"].TransferMinutes, 1e-9)
}

func TestResolve_NonPrimaryAlwaysNone(t *testing.T) {
	r := NewResolver(unitTimes(t))

	res, err := r.Resolve(testUnits(), map[string]Override{"M1": {HubID: "H1"}})
	require.NoError(t, err)

	m1 := byID(res.Units)["M1"]
	assert.Equal(t, model.NoTransfer, m1.TransferUnitID)
	assert.Nil(t, m1.TransferMinutes)
	assert.False(t, m1.HasTransfer())
}

func TestResolve_Overrides(t *testing.T) {
	r := NewResolver(unitTimes(t))

	res, err := r.Resolve(testUnits(), map[string]Override{
		"S1": {None: true},
		"S2": {HubID: "H1"},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)

	got := byID(res.Units)
	assert.Equal(t, model.NoTransfer, got["S1"].TransferUnitID)
	assert.Nil(t, got["S1"].TransferMinutes, "none must be null, not zero")
	assert.Equal(t, "H1", got["S2"].TransferUnitID)
	assert.InDelta(t, 35.0, *got["S2"].TransferMinutes, 1e-9)
}

func TestResolve_UnknownOverrideUnitIsCollected(t *testing.T) {
	r := NewResolver(unitTimes(t))

	res, err := r.Resolve(testUnits(), map[string]Override{
		"ZZ9": {HubID: "H1"},
		"S2":  {HubID: "NOPE"},
	})
	require.NoError(t, err)
	require.Len(t, res.Errors, 2)
	for _, e := range res.Errors {
		assert.ErrorIs(t, e, model.ErrUnknownUnit)
	}

	got := byID(res.Units)
	assert.Equal(t, model.NoTransfer, got["S2"].TransferUnitID)
	// Other units still resolved.
	assert.Equal(t, "H1", got["S1"].TransferUnitID)
}

func TestResolve_UnitMissingFromMatrix(t *testing.T) {
	r := NewResolver(unitTimes(t))

	units := append(testUnits(), model.Unit{ID: "S9", Primary: true})
	res, err := r.Resolve(units, nil)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], model.ErrUnknownUnit)
	assert.Equal(t, model.NoTransfer, byID(res.Units)["S9"].TransferUnitID)
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	r := NewResolver(unitTimes(t))
	units := testUnits()

	_, err := r.Resolve(units, nil)
	require.NoError(t, err)
	for _, u := range units {
		assert.Empty(t, u.TransferUnitID)
	}
}

func TestResolve_OverrideWithMissingRoute(t *testing.T) {
	ids := []string{"S1", "H1"}
	m, err := traveltime.NewMatrix("unit_times", ids, ids, [][]float64{{0, math.NaN()}, {math.NaN(), 0}})
	require.NoError(t, err)

	res, err := NewResolver(m).Resolve([]model.Unit{{ID: "S1", Primary: true}, {ID: "H1", Hub: true}},
		map[string]Override{"S1": {HubID: "H1"}})
	require.NoError(t, err)
	s1 := byID(res.Units)["S1"]
	assert.Equal(t, "H1", s1.TransferUnitID)
	assert.Nil(t, s1.TransferMinutes)
}

func TestResolve_NoMatrix(t *testing.T) {
	res, err := NewResolver(nil).Resolve(testUnits(), map[string]Override{
		"S1": {None: true},
		"S2": {HubID: "H2"},
	})
	require.NoError(t, err)

	got := byID(res.Units)
	assert.Equal(t, model.NoTransfer, got["S1"].TransferUnitID)
	assert.Equal(t, "H2", got["S2"].TransferUnitID)
	assert.Nil(t, got["S2"].TransferMinutes)
	assert.Equal(t, model.NoTransfer, got["M1"].TransferUnitID)

	// S3, H1 and H2 needed a nearest hub and are the only failures.
	require.Len(t, res.Errors, 3)
	for i, id := range []string{"S3", "H1", "H2"} {
		assert.Equal(t, model.NoTransfer, got[id].TransferUnitID)
		assert.Contains(t, res.Errors[i].Error(), "hub for "+id)
	}
}
