package scenario

import (
	"math"
	"strings"
)

// Key labels one column: (scenario, property, subtype). Subtype is blank for
// scalar properties and names a statistic (mean, std, median) otherwise.
type Key struct {
	Scenario string
	Property string
	Subtype  string
}

// String flattens the key to "scenario.property" or
// "scenario.property.subtype".
func (k Key) String() string {
	parts := []string{k.Scenario, k.Property}
	if k.Subtype != "" {
		parts = append(parts, k.Subtype)
	}
	return strings.Join(parts, ".")
}

// Kind is the storage type of a column.
type Kind int

const (
	// Float is a nullable float64.
	Float Kind = iota
	// Flag is a nullable 0/1 integer held in an int8.
	Flag
	// Text is a nullable string.
	Text
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Flag:
		return "flag"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// Column is an immutable labelled data column. Values are aligned with the
// row order of the table that holds the column.
type Column struct {
	key   Key
	kind  Kind
	f     []float64
	b     []int8
	s     []string
	valid []bool
}

// NewFloatColumn builds a Float column. NaN values are stored as null.
func NewFloatColumn(key Key, values []float64) *Column {
	c := &Column{key: key, kind: Float, f: make([]float64, len(values)), valid: make([]bool, len(values))}
	for i, v := range values {
		if !math.IsNaN(v) {
			c.f[i] = v
			c.valid[i] = true
		}
	}
	return c
}

// NewFlagColumn builds a Flag column from booleans. All values are valid.
func NewFlagColumn(key Key, values []bool) *Column {
	c := &Column{key: key, kind: Flag, b: make([]int8, len(values)), valid: make([]bool, len(values))}
	for i, v := range values {
		if v {
			c.b[i] = 1
		}
		c.valid[i] = true
	}
	return c
}

// NewTextColumn builds a Text column. A nil valid slice marks every value
// as present.
func NewTextColumn(key Key, values []string, valid []bool) *Column {
	c := &Column{key: key, kind: Text, s: append([]string(nil), values...), valid: make([]bool, len(values))}
	for i := range values {
		c.valid[i] = valid == nil || valid[i]
	}
	return c
}

func newEmpty(key Key, kind Kind, n int) *Column {
	c := &Column{key: key, kind: kind, valid: make([]bool, n)}
	switch kind {
	case Float:
		c.f = make([]float64, n)
	case Flag:
		c.b = make([]int8, n)
	case Text:
		c.s = make([]string, n)
	}
	return c
}

// Key returns the column label.
func (c *Column) Key() Key { return c.key }

// Kind returns the storage type.
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of values.
func (c *Column) Len() int { return len(c.valid) }

// Numeric reports whether the column holds Float or Flag values.
func (c *Column) Numeric() bool { return c.kind == Float || c.kind == Flag }

// Valid reports whether value i is non-null.
func (c *Column) Valid(i int) bool { return c.valid[i] }

// Float returns value i as a float64. ok is false for null values and for
// Text columns.
func (c *Column) Float(i int) (float64, bool) {
	if !c.valid[i] {
		return 0, false
	}
	switch c.kind {
	case Float:
		return c.f[i], true
	case Flag:
		return float64(c.b[i]), true
	default:
		return 0, false
	}
}

// Flag returns value i of a Flag column.
func (c *Column) Flag(i int) (int8, bool) {
	if c.kind != Flag || !c.valid[i] {
		return 0, false
	}
	return c.b[i], true
}

// IsSet reports whether value i is a non-null, non-zero number.
func (c *Column) IsSet(i int) bool {
	v, ok := c.Float(i)
	return ok && v != 0
}

// Text returns value i of a Text column.
func (c *Column) Text(i int) (string, bool) {
	if c.kind != Text || !c.valid[i] {
		return "", false
	}
	return c.s[i], true
}

// Value returns value i as float64, int8 or string, or nil when null.
func (c *Column) Value(i int) any {
	if !c.valid[i] {
		return nil
	}
	switch c.kind {
	case Float:
		return c.f[i]
	case Flag:
		return c.b[i]
	default:
		return c.s[i]
	}
}

// withKey returns a copy of c relabelled to key. Value slices are shared.
func (c *Column) withKey(key Key) *Column {
	cp := *c
	cp.key = key
	return &cp
}

// set copies value j of src into position i of c. Kinds must match, except
// that numeric values may be copied into a Float column.
func (c *Column) set(i int, src *Column, j int) {
	if !src.valid[j] {
		c.valid[i] = false
		return
	}
	switch c.kind {
	case Float:
		v, _ := src.Float(j)
		c.f[i] = v
	case Flag:
		c.b[i] = src.b[j]
	case Text:
		c.s[i] = src.s[j]
	}
	c.valid[i] = true
}

// asFlag converts a numeric column whose values are all 0, 1 or null into a
// Flag column. ok is false when some value is outside {0,1}.
func (c *Column) asFlag() (*Column, bool) {
	if c.kind == Flag {
		return c, true
	}
	if c.kind != Float {
		return nil, false
	}
	out := newEmpty(c.key, Flag, c.Len())
	for i := range c.valid {
		if !c.valid[i] {
			continue
		}
		switch c.f[i] {
		case 0:
		case 1:
			out.b[i] = 1
		default:
			return nil, false
		}
		out.valid[i] = true
	}
	return out, true
}
