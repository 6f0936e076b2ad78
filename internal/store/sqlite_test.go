package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catchment-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func ptr[T any](v T) *T { return &v }

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "baseline", []string{"X", "Y"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "baseline", got.Label)
	assert.Equal(t, []string{"X", "Y"}, got.Scenarios)
	assert.Nil(t, got.Summary)

	summary := &model.RunSummary{Units: 3, Areas: 10, Regions: 4, Colours: 2, DiffScenarios: []string{"diff_X_Y"}}
	require.NoError(t, st.CompleteRun(ctx, run.ID, summary))

	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, *summary, *got.Summary)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "broken", nil)
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, "schema mismatch"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "schema mismatch", got.Error)
	assert.Empty(t, got.Scenarios)
}

func TestSQLite_RunNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	err = st.CompleteRun(ctx, "missing", &model.RunSummary{})
	assert.True(t, errors.Is(err, model.ErrNotFound))

	err = st.FailRun(ctx, "missing", "x")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "a", nil)
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "b", nil)
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, a.ID, &model.RunSummary{}))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	done, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, a.ID, done[0].ID)

	byLabel, err := st.ListRuns(ctx, RunFilter{Label: "b"})
	require.NoError(t, err)
	require.Len(t, byLabel, 1)
	assert.Equal(t, "b", byLabel[0].Label)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestSQLite_Cells(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "cells", []string{"X"})
	require.NoError(t, err)

	cells := []Cell{
		{Table: "areas", RowID: "A2", Scenario: "X", Property: "pop", Value: ptr(5.0)},
		{Table: "areas", RowID: "A1", Scenario: "X", Property: "pop", Subtype: "mean", Value: ptr(1.5)},
		{Table: "areas", RowID: "A1", Scenario: "any", Property: "name", Text: ptr("North")},
		{Table: "regions", RowID: "R1", Scenario: "X", Property: "contains_unit", Value: ptr(1.0)},
	}
	n, err := st.SaveCells(ctx, run.ID, cells)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	got, err := st.ListCells(ctx, run.ID, "areas")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "A1", got[0].RowID)
	assert.Equal(t, "X", got[0].Scenario)
	assert.Equal(t, "mean", got[0].Subtype)
	assert.Equal(t, 1.5, *got[0].Value)
	assert.Equal(t, "any", got[1].Scenario)
	assert.Equal(t, "North", *got[1].Text)
	assert.Nil(t, got[1].Value)
	assert.Equal(t, "A2", got[2].RowID)

	// Saving the same key again replaces the value.
	_, err = st.SaveCells(ctx, run.ID, []Cell{{Table: "areas", RowID: "A2", Scenario: "X", Property: "pop", Value: ptr(7.0)}})
	require.NoError(t, err)
	got, err = st.ListCells(ctx, run.ID, "areas")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 7.0, *got[2].Value)

	n, err = st.SaveCells(ctx, run.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_RegionColours(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "colours", nil)
	require.NoError(t, err)

	require.NoError(t, st.SaveRegionColours(ctx, run.ID, map[string]int{"R1": 0, "R2": 1}))
	require.NoError(t, st.SaveRegionColours(ctx, run.ID, map[string]int{"R2": 2}))
	require.NoError(t, st.SaveRegionColours(ctx, run.ID, nil))

	got, err := st.RegionColours(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"R1": 0, "R2": 2}, got)
}
