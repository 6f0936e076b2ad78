// Package traveltime holds travel-time matrices (minutes) and nearest
// candidate lookup over them.
package traveltime

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catchment-cli/internal/model"
)

// Matrix is an immutable travel-time matrix keyed by [row id][column id].
// Missing routes are stored as NaN.
type Matrix struct {
	name   string
	rows   []string
	cols   []string
	rowIdx map[string]int
	colIdx map[string]int
	data   []float64 // row-major, len(rows)*len(cols)
}

// NewMatrix builds a matrix from row ids, column ids and a dense grid of
// values. name is used in error messages only.
func NewMatrix(name string, rows, cols []string, values [][]float64) (*Matrix, error) {
	if len(values) != len(rows) {
		return nil, eris.Errorf("traveltime: %s has %d value rows for %d row ids", name, len(values), len(rows))
	}

	m := &Matrix{
		name:   name,
		rows:   append([]string(nil), rows...),
		cols:   append([]string(nil), cols...),
		rowIdx: make(map[string]int, len(rows)),
		colIdx: make(map[string]int, len(cols)),
		data:   make([]float64, 0, len(rows)*len(cols)),
	}
	for i, id := range rows {
		if _, dup := m.rowIdx[id]; dup {
			return nil, eris.Errorf("traveltime: %s has duplicate row %q", name, id)
		}
		m.rowIdx[id] = i
	}
	for j, id := range cols {
		if _, dup := m.colIdx[id]; dup {
			return nil, eris.Errorf("traveltime: %s has duplicate column %q", name, id)
		}
		m.colIdx[id] = j
	}
	for i, row := range values {
		if len(row) != len(cols) {
			return nil, eris.Errorf("traveltime: %s row %q has %d values, want %d", name, rows[i], len(row), len(cols))
		}
		m.data = append(m.data, row...)
	}
	return m, nil
}

// Name returns the label the matrix was built with.
func (m *Matrix) Name() string { return m.name }

// Rows returns the row ids in matrix order.
func (m *Matrix) Rows() []string { return append([]string(nil), m.rows...) }

// Columns returns the column ids in matrix order.
func (m *Matrix) Columns() []string { return append([]string(nil), m.cols...) }

// HasRow reports whether id is a row of the matrix.
func (m *Matrix) HasRow(id string) bool {
	_, ok := m.rowIdx[id]
	return ok
}

// HasColumn reports whether id is a column of the matrix.
func (m *Matrix) HasColumn(id string) bool {
	_, ok := m.colIdx[id]
	return ok
}

// Row returns a view of one matrix row.
func (m *Matrix) Row(id string) (Row, error) {
	i, ok := m.rowIdx[id]
	if !ok {
		return Row{}, &model.UnknownUnitError{UnitID: id, Reason: "not a row of " + m.name}
	}
	return Row{m: m, i: i}, nil
}

// Time returns the minutes from row to col. ok is false when the route is
// missing (NaN).
func (m *Matrix) Time(row, col string) (minutes float64, ok bool, err error) {
	r, err := m.Row(row)
	if err != nil {
		return 0, false, err
	}
	return r.Time(col)
}

// Nearest is shorthand for m.Row(rowID) followed by Row.Nearest.
func (m *Matrix) Nearest(rowID string, candidates []string) (string, float64, error) {
	r, err := m.Row(rowID)
	if err != nil {
		return "", 0, err
	}
	return r.Nearest(candidates)
}

// Row is one row of a Matrix.
type Row struct {
	m *Matrix
	i int
}

// ID returns the row id.
func (r Row) ID() string { return r.m.rows[r.i] }

// Time returns the minutes to col.
func (r Row) Time(col string) (minutes float64, ok bool, err error) {
	j, found := r.m.colIdx[col]
	if !found {
		return 0, false, &model.UnknownColumnError{Column: col, Source: r.m.name}
	}
	v := r.m.data[r.i*len(r.m.cols)+j]
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}

// Nearest returns the candidate with the smallest time. Ties go to the
// candidate listed first. Every candidate must be a column of the matrix.
func (r Row) Nearest(candidates []string) (string, float64, error) {
	if len(candidates) == 0 {
		return "", 0, eris.Errorf("traveltime: no candidates for row %q", r.ID())
	}

	// Validate the whole set before choosing so the result never depends on
	// where an unknown id sits in the list.
	idx := make([]int, len(candidates))
	for k, c := range candidates {
		j, ok := r.m.colIdx[c]
		if !ok {
			return "", 0, &model.UnknownColumnError{Column: c, Source: r.m.name}
		}
		idx[k] = j
	}

	best := -1
	bestTime := math.Inf(1)
	base := r.i * len(r.m.cols)
	for k, j := range idx {
		v := r.m.data[base+j]
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v < bestTime {
			best = k
			bestTime = v
		}
	}
	if best < 0 {
		return "", 0, eris.Errorf("traveltime: row %q has no route to any candidate", r.ID())
	}
	return candidates[best], bestTime, nil
}
