package scenario

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catchment-cli/internal/model"
)

// CombineOptions configures Combine.
type CombineOptions struct {
	// Shared properties are identical in every scenario and are stored
	// once under the "any" scenario.
	Shared []string
	// Flags are 0/1 properties that default to 0 rather than null for rows
	// missing from a scenario. Nil means DefaultFlags.
	Flags []string
	// AddUse adds a per-scenario "use" flag that is 1 where the row was
	// present in that scenario's input.
	AddUse bool
}

// Combine merges per-scenario tables into one multi-scenario table. Each
// input's columns are relabelled with its map key. Rows are the sorted
// union of input rows. The result does not depend on map iteration order.
func Combine(inputs map[string]*Table, opts CombineOptions) (*Table, error) {
	if len(inputs) == 0 {
		return nil, eris.New("scenario: combine needs at least one table")
	}
	flags := opts.Flags
	if flags == nil {
		flags = DefaultFlags
	}
	isFlag := stringSet(flags)
	isShared := stringSet(opts.Shared)

	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	depth := 0
	for _, name := range names {
		if !model.IsRawScenario(name) || name == "" {
			return nil, &model.SchemaMismatchError{Scenario: name, Detail: "reserved scenario name in combine input"}
		}
		in := inputs[name]
		if in == nil {
			return nil, &model.SchemaMismatchError{Scenario: name, Detail: "nil table"}
		}
		if depth == 0 {
			depth = in.Depth()
			continue
		}
		if in.Depth() != depth {
			return nil, &model.SchemaMismatchError{
				Scenario: name,
				Detail:   fmt.Sprintf("axis depth %d, other scenarios have %d", in.Depth(), depth),
			}
		}
	}

	rows := unionRows(inputs, names)
	out, err := NewTable(depth, rows)
	if err != nil {
		return nil, eris.Wrap(err, "scenario: combine")
	}

	if err := addShared(out, inputs, names, opts.Shared); err != nil {
		return nil, err
	}

	for _, name := range names {
		in := inputs[name]
		hasUse := false
		for _, c := range in.cols {
			if isShared[c.key.Property] {
				continue
			}
			if c.key.Property == "use" {
				hasUse = true
			}
			key := Key{Scenario: name, Property: c.key.Property, Subtype: c.key.Subtype}
			col := reindex(c, key, in, rows, isFlag[c.key.Property])
			if err := out.Add(col); err != nil {
				return nil, eris.Wrapf(err, "scenario: combine %s", name)
			}
		}
		if opts.AddUse && !hasUse {
			present := make([]bool, len(rows))
			for i, id := range rows {
				_, present[i] = in.index[id]
			}
			if err := out.Add(NewFlagColumn(Key{Scenario: name, Property: "use"}, present)); err != nil {
				return nil, eris.Wrapf(err, "scenario: combine %s", name)
			}
		}
	}

	zap.L().Debug("scenario: combined tables",
		zap.Strings("scenarios", names),
		zap.Int("rows", len(rows)),
		zap.Int("columns", len(out.cols)),
	)
	return out, nil
}

func unionRows(inputs map[string]*Table, names []string) []string {
	seen := make(map[string]bool)
	var rows []string
	for _, name := range names {
		for _, id := range inputs[name].rows {
			if !seen[id] {
				seen[id] = true
				rows = append(rows, id)
			}
		}
	}
	sort.Strings(rows)
	return rows
}

// addShared factors the shared properties out under "any". Each row takes
// its value from the first scenario, by name, that contains the row.
func addShared(out *Table, inputs map[string]*Table, names []string, shared []string) error {
	for _, prop := range shared {
		first := propertyColumnsAnyLabel(inputs[names[0]], prop)
		if len(first) == 0 {
			return &model.SchemaMismatchError{Scenario: names[0], Property: prop, Detail: "shared property missing"}
		}

		for _, tmpl := range first {
			key := Key{Scenario: model.ScenarioAny, Property: prop, Subtype: tmpl.key.Subtype}
			col := newEmpty(key, tmpl.kind, out.Len())

			sources := make([]*Column, len(names))
			for s, name := range names {
				src := findProperty(inputs[name], prop, tmpl.key.Subtype)
				if src == nil {
					return &model.SchemaMismatchError{Scenario: name, Property: prop, Detail: "shared property missing"}
				}
				if src.kind != tmpl.kind && !(src.Numeric() && tmpl.kind == Float) {
					return &model.SchemaMismatchError{
						Scenario: name,
						Property: prop,
						Detail:   fmt.Sprintf("shared property is %s here but %s in %s", src.kind, tmpl.kind, names[0]),
					}
				}
				sources[s] = src
			}

			for i, id := range out.rows {
				for s, name := range names {
					if j, ok := inputs[name].index[id]; ok {
						col.set(i, sources[s], j)
						break
					}
				}
			}
			if err := out.Add(col); err != nil {
				return eris.Wrapf(err, "scenario: combine shared %s", prop)
			}
		}
	}
	return nil
}

// findProperty finds a column by property and subtype regardless of the
// scenario label it carries.
func findProperty(t *Table, prop, subtype string) *Column {
	for _, c := range t.cols {
		if c.key.Property == prop && c.key.Subtype == subtype {
			return c
		}
	}
	return nil
}

func propertyColumnsAnyLabel(t *Table, prop string) []*Column {
	var out []*Column
	for _, c := range t.cols {
		if c.key.Property == prop {
			out = append(out, c)
		}
	}
	return out
}

// reindex aligns c (from table in) to rows. Missing rows are null, or 0 for
// flag properties. Flag properties stored as 0/1 floats become Flag columns.
func reindex(c *Column, key Key, in *Table, rows []string, flag bool) *Column {
	src := c
	if flag {
		if fc, ok := c.asFlag(); ok {
			src = fc
		}
	}
	col := newEmpty(key, src.kind, len(rows))
	for i, id := range rows {
		j, ok := in.index[id]
		if ok {
			col.set(i, src, j)
			continue
		}
		if flag && src.Numeric() {
			col.valid[i] = true // zero value already in place
		}
	}
	return col
}
