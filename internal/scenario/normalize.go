package scenario

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catchment-cli/internal/model"
)

// DefaultFlags are the properties treated as 0/1 flags.
var DefaultFlags = []string{"selected", "use"}

// FlatColumn is one raw column of a scenario output file.
type FlatColumn struct {
	Property string
	Subtype  string
	Cells    []string
}

// Flat is a scenario table as read from disk: row ids plus raw string
// cells. It carries no scenario label.
type Flat struct {
	IDs     []string
	Columns []FlatColumn
}

// Normalize labels every column of flat with the scenario name and infers
// column kinds. Properties listed in flags become Flag columns when their
// cells are all 0/1/true/false or blank; columns whose cells all parse as
// numbers become Float; the rest are Text.
func Normalize(name string, depth int, flat Flat, flags []string) (*Table, error) {
	if !model.IsRawScenario(name) || name == "" {
		return nil, &model.SchemaMismatchError{Scenario: name, Detail: "reserved or empty scenario name"}
	}
	t, err := NewTable(depth, flat.IDs)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: normalize %s", name)
	}

	isFlag := stringSet(flags)
	for _, fc := range flat.Columns {
		if len(fc.Cells) != len(flat.IDs) {
			return nil, eris.Errorf("scenario: normalize %s: column %s has %d cells for %d rows",
				name, fc.Property, len(fc.Cells), len(flat.IDs))
		}
		key := Key{Scenario: name, Property: fc.Property, Subtype: fc.Subtype}
		if depth == DepthScalar && fc.Subtype != "" {
			return nil, &model.SchemaMismatchError{
				Scenario: name,
				Property: fc.Property,
				Detail:   "column has a subtype but the table declares two axes",
			}
		}

		var col *Column
		if isFlag[fc.Property] {
			col = parseFlags(key, fc.Cells)
		}
		if col == nil {
			col = parseFloats(key, fc.Cells)
		}
		if col == nil {
			col = parseTexts(key, fc.Cells)
		}
		if err := t.Add(col); err != nil {
			return nil, eris.Wrapf(err, "scenario: normalize %s", name)
		}
	}
	return t, nil
}

func parseFlags(key Key, cells []string) *Column {
	c := newEmpty(key, Flag, len(cells))
	for i, raw := range cells {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "":
		case "0", "0.0", "false":
			c.valid[i] = true
		case "1", "1.0", "true":
			c.b[i] = 1
			c.valid[i] = true
		default:
			return nil
		}
	}
	return c
}

func parseFloats(key Key, cells []string) *Column {
	c := newEmpty(key, Float, len(cells))
	for i, raw := range cells {
		s := strings.TrimSpace(raw)
		if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "<na>") {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) {
			return nil
		}
		c.f[i] = v
		c.valid[i] = true
	}
	return c
}

func parseTexts(key Key, cells []string) *Column {
	c := newEmpty(key, Text, len(cells))
	for i, raw := range cells {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		c.s[i] = s
		c.valid[i] = true
	}
	return c
}

func stringSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}
