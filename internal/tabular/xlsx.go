package tabular

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadXLSX returns every row of the first sheet of an XLSX workbook, or of
// the named sheet when sheet is not blank.
func ReadXLSX(path, sheet string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}

	var s *xlsx.Sheet
	if sheet != "" {
		var ok bool
		s, ok = f.Sheet[sheet]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found in %s", sheet, path)
		}
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.Errorf("xlsx: %s has no sheets", path)
		}
		s = f.Sheets[0]
	}

	rows := make([][]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// ReadFile reads a table from path, choosing the parser by extension:
// .xlsx files use the first sheet, .tsv files are tab separated and
// everything else is read as CSV.
func ReadFile(ctx context.Context, path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, "")
	case ".tsv":
		return readDelimited(ctx, path, '\t')
	default:
		return readDelimited(ctx, path, ',')
	}
}

func readDelimited(ctx context.Context, path string, delim rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: open %s", path)
	}
	defer func() { _ = f.Close() }()

	rows, err := ReadCSV(ctx, f, delim)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: read %s", path)
	}
	return rows, nil
}
