package geo

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// LoadShapefile reads polygon records from a shapefile. codeField and
// nameField are DBF column names, matched case-insensitively. charset names
// the DBF text encoding (e.g. "windows-1252"); blank means UTF-8.
func LoadShapefile(path, codeField, nameField, charset string) ([]Boundary, error) {
	var dec *encoding.Decoder
	if charset != "" && !strings.EqualFold(charset, "utf-8") {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: unsupported charset %q", charset)
		}
		dec = enc.NewDecoder()
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	codeIdx := fieldIndex(reader, codeField)
	if codeIdx < 0 {
		return nil, eris.Errorf("geo: shapefile field %q not found", codeField)
	}
	nameIdx := -1
	if nameField != "" {
		nameIdx = fieldIndex(reader, nameField)
	}

	log := zap.L().With(zap.String("component", "geo.shapefile"))
	var out []Boundary
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()
		code := attribute(reader, codeIdx, dec)
		if code == "" {
			skipped++
			continue
		}
		g := shapeToMultiPolygon(shape)
		if g == nil {
			log.Debug("skipping non-polygon record", zap.Int("record", n), zap.String("code", code))
			skipped++
			continue
		}
		b := Boundary{Code: code, Geom: g}
		if nameIdx >= 0 {
			b.Name = attribute(reader, nameIdx, dec)
		}
		out = append(out, b)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "geo: read shapefile %s", path)
	}
	if skipped > 0 {
		log.Warn("skipped shapefile records", zap.String("path", path), zap.Int("skipped", skipped))
	}
	return out, nil
}

func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

func attribute(reader *shp.Reader, idx int, dec *encoding.Decoder) string {
	val := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	if dec == nil || val == "" {
		return val
	}
	decoded, err := dec.String(val)
	if err != nil {
		return val
	}
	return decoded
}

// shapeToMultiPolygon converts polygon records, treating every part as its
// own polygon ring. Other shape types yield nil.
func shapeToMultiPolygon(s shp.Shape) *geom.MultiPolygon {
	var parts []int32
	var points []shp.Point
	switch p := s.(type) {
	case *shp.Polygon:
		parts, points = p.Parts, p.Points
	case *shp.PolygonZ:
		parts, points = p.Parts, p.Points
	case *shp.PolygonM:
		parts, points = p.Parts, p.Points
	default:
		return nil
	}
	if len(parts) == 0 || len(points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || end-start < 4 {
			continue
		}
		flat := make([]float64, 0, (end-start)*2)
		for _, pt := range points[start:end] {
			flat = append(flat, pt.X, pt.Y)
		}
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("geo: skipping malformed ring", zap.Int("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geo: skipping malformed polygon part", zap.Int("part", i), zap.Error(err))
			continue
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
