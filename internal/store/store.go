package store

import (
	"context"

	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/scenario"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Label  string          `json:"label,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Cell is one value of a scenario table in long format. Exactly one of
// Value and Text is set for non-null cells; both are nil for nulls.
type Cell struct {
	Table    string   `json:"table"`
	RowID    string   `json:"row_id"`
	Scenario string   `json:"scenario"`
	Property string   `json:"property"`
	Subtype  string   `json:"subtype,omitempty"`
	Value    *float64 `json:"value,omitempty"`
	Text     *string  `json:"text,omitempty"`
}

// Store defines the persistence interface for analysis runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, label string, scenarios []string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, msg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Results
	SaveCells(ctx context.Context, runID string, cells []Cell) (int64, error)
	ListCells(ctx context.Context, runID, table string) ([]Cell, error)
	SaveRegionColours(ctx context.Context, runID string, colours map[string]int) error
	RegionColours(ctx context.Context, runID string) (map[string]int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// CellsFromTable flattens t into long-format cells tagged with name. Null
// values are skipped. Cells follow row order, then column order.
func CellsFromTable(name string, t *scenario.Table) []Cell {
	if t == nil {
		return nil
	}
	cols := t.Columns()
	rows := t.Rows()
	out := make([]Cell, 0, len(rows)*len(cols))
	for i, id := range rows {
		for _, c := range cols {
			if !c.Valid(i) {
				continue
			}
			k := c.Key()
			cell := Cell{Table: name, RowID: id, Scenario: k.Scenario, Property: k.Property, Subtype: k.Subtype}
			if s, ok := c.Text(i); ok {
				cell.Text = &s
			} else if v, ok := c.Float(i); ok {
				cell.Value = &v
			}
			out = append(out, cell)
		}
	}
	return out
}

// cellRows converts cells to COPY rows prefixed with runID.
func cellRows(runID string, cells []Cell) [][]any {
	rows := make([][]any, len(cells))
	for i, c := range cells {
		rows[i] = []any{runID, c.Table, c.RowID, c.Scenario, c.Property, c.Subtype, c.Value, c.Text}
	}
	return rows
}

var cellColumns = []string{"run_id", "tbl", "row_id", "scenario", "property", "subtype", "value", "text"}
