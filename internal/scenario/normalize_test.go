package scenario

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catchment-cli/internal/model"
)

func TestNormalize_InfersKinds(t *testing.T) {
	flat := Flat{
		IDs: []string{"a", "b", "c"},
		Columns: []FlatColumn{
			{Property: "selected", Cells: []string{"1", "0", ""}},
			{Property: "time", Cells: []string{"12.5", "nan", "3"}},
			{Property: "region_code", Cells: []string{"E01", "W02", ""}},
			{Property: "count", Cells: []string{"0", "1", "1"}},
		},
	}
	tbl, err := Normalize("X", DepthScalar, flat, DefaultFlags)
	require.NoError(t, err)

	kinds := map[string]Kind{}
	for _, c := range tbl.Columns() {
		assert.Equal(t, "X", c.Key().Scenario)
		kinds[c.Key().Property] = c.Kind()
	}
	assert.Equal(t, map[string]Kind{
		"selected":    Flag,
		"time":        Float,
		"region_code": Text,
		"count":       Float,
	}, kinds)

	sel, _ := tbl.Column(Key{Scenario: "X", Property: "selected"})
	assert.Nil(t, sel.Value(2))
	tm, _ := tbl.Column(Key{Scenario: "X", Property: "time"})
	assert.False(t, tm.Valid(1))
}

func TestNormalize_FlagFallsBackToFloat(t *testing.T) {
	flat := Flat{
		IDs:     []string{"a"},
		Columns: []FlatColumn{{Property: "use", Cells: []string{"0.5"}}},
	}
	tbl, err := Normalize("X", DepthScalar, flat, DefaultFlags)
	require.NoError(t, err)
	c, _ := tbl.Column(Key{Scenario: "X", Property: "use"})
	assert.Equal(t, Float, c.Kind())
}

func TestNormalize_Errors(t *testing.T) {
	flat := Flat{IDs: []string{"a"}, Columns: []FlatColumn{{Property: "p", Subtype: "mean", Cells: []string{"1"}}}}

	_, err := Normalize("X", DepthScalar, flat, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSchemaMismatch))

	for _, name := range []string{"", "any", "diff_A_minus_B"} {
		_, err = Normalize(name, DepthStats, flat, nil)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, model.ErrSchemaMismatch), name)
	}

	_, err = Normalize("X", DepthStats, Flat{IDs: []string{"a"}, Columns: []FlatColumn{{Property: "p", Cells: nil}}}, nil)
	require.Error(t, err)
}
