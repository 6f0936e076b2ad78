package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// WriteCSV writes rec as CSV with its header first.
func WriteCSV(w io.Writer, rec Records) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rec.Header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	line := make([]string, len(rec.Header))
	for _, row := range rec.Rows {
		for i := range line {
			line[i] = ""
			if i < len(row) {
				line[i] = formatValue(row[i])
			}
		}
		if err := cw.Write(line); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteJSON writes rec as a JSON array with one object per row, keyed by
// header. Null cells are JSON null.
func WriteJSON(w io.Writer, rec Records) error {
	objs := make([]map[string]any, 0, len(rec.Rows))
	for _, row := range rec.Rows {
		obj := make(map[string]any, len(rec.Header))
		for i, h := range rec.Header {
			var v any
			if i < len(row) {
				v = row[i]
			}
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				v = nil
			}
			obj[h] = v
		}
		objs = append(objs, obj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(objs); err != nil {
		return eris.Wrap(err, "export: write json")
	}
	return nil
}

// WriteXLSX saves each record set as a sheet of one workbook.
func WriteXLSX(path string, sets ...Records) error {
	f := xlsx.NewFile()
	for _, rec := range sets {
		sheet, err := f.AddSheet(sheetName(rec.Name))
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", rec.Name)
		}
		hdr := sheet.AddRow()
		for _, h := range rec.Header {
			hdr.AddCell().SetString(h)
		}
		for _, row := range rec.Rows {
			r := sheet.AddRow()
			for _, v := range row {
				c := r.AddCell()
				switch x := v.(type) {
				case nil:
				case float64:
					c.SetFloat(x)
				case int8:
					c.SetInt(int(x))
				case int:
					c.SetInt(x)
				default:
					c.SetString(formatValue(x))
				}
			}
		}
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

// sheetName trims a name to the 31 characters XLSX allows.
func sheetName(name string) string {
	if name == "" {
		name = "Sheet1"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// WriteAll writes every record set to dir in each format. CSV and JSON get
// one file per set; XLSX gets one workbook holding all of them. It returns
// the paths written.
func WriteAll(dir string, formats []string, sets ...Records) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create %s", dir)
	}

	var written []string
	for _, format := range formats {
		switch strings.ToLower(format) {
		case FormatCSV, FormatJSON:
			ext := strings.ToLower(format)
			for _, rec := range sets {
				path := filepath.Join(dir, rec.Name+"."+ext)
				if err := writeFile(path, rec, ext); err != nil {
					return written, err
				}
				written = append(written, path)
			}
		case FormatXLSX:
			path := filepath.Join(dir, "catchment.xlsx")
			if err := WriteXLSX(path, sets...); err != nil {
				return written, err
			}
			written = append(written, path)
		default:
			return written, eris.Errorf("export: unknown format %q", format)
		}
	}
	zap.L().Info("export: wrote outputs", zap.String("dir", dir), zap.Int("files", len(written)))
	return written, nil
}

func writeFile(path string, rec Records, ext string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if ext == FormatCSV {
		err = WriteCSV(f, rec)
	} else {
		err = WriteJSON(f, rec)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = eris.Wrapf(cerr, "export: close %s", path)
	}
	return err
}
