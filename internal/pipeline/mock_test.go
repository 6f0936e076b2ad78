package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/store"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, label string, scenarios []string) (*model.Run, error) {
	args := m.Called(ctx, label, scenarios)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	args := m.Called(ctx, runID, summary)
	return args.Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID string, msg string) error {
	args := m.Called(ctx, runID, msg)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) SaveCells(ctx context.Context, runID string, cells []store.Cell) (int64, error) {
	args := m.Called(ctx, runID, cells)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) ListCells(ctx context.Context, runID, table string) ([]store.Cell, error) {
	args := m.Called(ctx, runID, table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Cell), args.Error(1)
}

func (m *mockStore) SaveRegionColours(ctx context.Context, runID string, colours map[string]int) error {
	args := m.Called(ctx, runID, colours)
	return args.Error(0)
}

func (m *mockStore) RegionColours(ctx context.Context, runID string) (map[string]int, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
