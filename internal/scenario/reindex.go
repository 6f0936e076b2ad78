package scenario

// Reindex returns a table over rows with every column of t aligned to it.
// Rows absent from t are null, except for flag properties, which are 0.
// rows may add, drop or reorder rows; ids must be unique.
func (t *Table) Reindex(rows []string, flags []string) (*Table, error) {
	if flags == nil {
		flags = DefaultFlags
	}
	isFlag := stringSet(flags)

	out, err := NewTable(t.depth, rows)
	if err != nil {
		return nil, err
	}
	for _, c := range t.cols {
		if err := out.Add(reindex(c, c.key, t, out.rows, isFlag[c.key.Property])); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FilterRows returns a table holding only the rows for which keep is true,
// in their existing order.
func (t *Table) FilterRows(keep func(id string) bool) *Table {
	rows := make([]string, 0, len(t.rows))
	for _, id := range t.rows {
		if keep(id) {
			rows = append(rows, id)
		}
	}
	out, _ := t.Reindex(rows, []string{}) // rows are a subset, so no defaults apply
	return out
}
