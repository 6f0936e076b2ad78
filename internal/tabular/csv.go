// Package tabular reads the unit, area, region, travel-time and scenario
// tables that feed a catchment analysis from CSV or XLSX files.
package tabular

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadCSV reads every record of r, header included. Cells are trimmed and
// lines starting with '#' are skipped. Rows may be ragged; the loaders read
// missing cells as blank.
func ReadCSV(ctx context.Context, r io.Reader, delim rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	var rows [][]string
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "csv: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrapf(err, "csv: read record %d", line)
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		rows = append(rows, record)
	}
}
