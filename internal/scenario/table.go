// Package scenario models multi-scenario data tables whose columns are
// labelled (scenario, property[, subtype]), and combines and differences
// them.
package scenario

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catchment-cli/internal/model"
)

// Axis depths a table may declare.
const (
	DepthScalar = 2 // (scenario, property)
	DepthStats  = 3 // (scenario, property, subtype)
)

// Table is a row-indexed set of labelled columns sharing one axis depth.
// Columns are immutable once added; methods that change the column set
// return or operate on the receiver only.
type Table struct {
	depth int
	rows  []string
	index map[string]int
	cols  []*Column
	byKey map[Key]int
}

// NewTable creates an empty table over rows. depth must be DepthScalar or
// DepthStats and row ids must be unique.
func NewTable(depth int, rows []string) (*Table, error) {
	if depth != DepthScalar && depth != DepthStats {
		return nil, eris.Errorf("scenario: invalid axis depth %d", depth)
	}
	t := &Table{
		depth: depth,
		rows:  append([]string(nil), rows...),
		index: make(map[string]int, len(rows)),
		byKey: make(map[Key]int),
	}
	for i, id := range rows {
		if _, dup := t.index[id]; dup {
			return nil, eris.Errorf("scenario: duplicate row id %q", id)
		}
		t.index[id] = i
	}
	return t, nil
}

// Depth returns the declared number of column axes.
func (t *Table) Depth() int { return t.depth }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns the row ids in table order.
func (t *Table) Rows() []string { return append([]string(nil), t.rows...) }

// RowIndex returns the position of row id.
func (t *Table) RowIndex(id string) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// Columns returns the columns in table order.
func (t *Table) Columns() []*Column { return append([]*Column(nil), t.cols...) }

// Keys returns the column keys in table order.
func (t *Table) Keys() []Key {
	keys := make([]Key, len(t.cols))
	for i, c := range t.cols {
		keys[i] = c.key
	}
	return keys
}

// Column returns the column labelled k.
func (t *Table) Column(k Key) (*Column, bool) {
	i, ok := t.byKey[k]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Lookup returns the column for (scenario, property, subtype), falling back
// to the shared "any" scenario.
func (t *Table) Lookup(scenario, property, subtype string) (*Column, bool) {
	if c, ok := t.Column(Key{Scenario: scenario, Property: property, Subtype: subtype}); ok {
		return c, true
	}
	return t.Column(Key{Scenario: model.ScenarioAny, Property: property, Subtype: subtype})
}

// PropertyColumns returns the columns of one scenario and property in table
// order, one per subtype.
func (t *Table) PropertyColumns(scenario, property string) []*Column {
	var out []*Column
	for _, c := range t.cols {
		if c.key.Scenario == scenario && c.key.Property == property {
			out = append(out, c)
		}
	}
	return out
}

// ScenarioColumns returns every column of one scenario in table order.
func (t *Table) ScenarioColumns(scenario string) []*Column {
	var out []*Column
	for _, c := range t.cols {
		if c.key.Scenario == scenario {
			out = append(out, c)
		}
	}
	return out
}

// Scenarios returns the distinct scenario labels, "any" first and the rest
// sorted.
func (t *Table) Scenarios() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range t.cols {
		if !seen[c.key.Scenario] {
			seen[c.key.Scenario] = true
			out = append(out, c.key.Scenario)
		}
	}
	sort.Slice(out, func(i, j int) bool { return model.ScenarioLess(out[i], out[j]) })
	return out
}

// Add appends a column after checking its length, label depth and kind.
func (t *Table) Add(c *Column) error {
	if c == nil {
		return eris.New("scenario: nil column")
	}
	if c.Len() != len(t.rows) {
		return eris.Errorf("scenario: column %s has %d values for %d rows", c.key, c.Len(), len(t.rows))
	}
	if c.key.Scenario == "" || c.key.Property == "" {
		return eris.Errorf("scenario: column %s needs a scenario and a property", c.key)
	}
	if t.depth == DepthScalar && c.key.Subtype != "" {
		return &model.SchemaMismatchError{
			Scenario: c.key.Scenario,
			Property: c.key.Property,
			Detail:   "subtype " + c.key.Subtype + " in a two-axis table",
		}
	}
	if c.kind == Flag {
		for i, v := range c.b {
			if c.valid[i] && v != 0 && v != 1 {
				return eris.Errorf("scenario: flag column %s has value %d", c.key, v)
			}
		}
	}
	if _, dup := t.byKey[c.key]; dup {
		return eris.Errorf("scenario: duplicate column %s", c.key)
	}
	t.byKey[c.key] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// Clone returns a table with the same rows and columns. Columns are shared
// because they are immutable.
func (t *Table) Clone() *Table {
	cp := &Table{
		depth: t.depth,
		rows:  append([]string(nil), t.rows...),
		index: make(map[string]int, len(t.index)),
		cols:  append([]*Column(nil), t.cols...),
		byKey: make(map[Key]int, len(t.byKey)),
	}
	for k, v := range t.index {
		cp.index[k] = v
	}
	for k, v := range t.byKey {
		cp.byKey[k] = v
	}
	return cp
}

// SortColumns orders columns by scenario ("any" first, then by name) and
// keeps the existing order within a scenario.
func (t *Table) SortColumns() {
	sort.SliceStable(t.cols, func(i, j int) bool {
		return model.ScenarioLess(t.cols[i].key.Scenario, t.cols[j].key.Scenario)
	})
	for i, c := range t.cols {
		t.byKey[c.key] = i
	}
}
