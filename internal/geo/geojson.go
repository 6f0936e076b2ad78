package geo

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// LoadGeoJSON reads a FeatureCollection of polygon or multipolygon
// features. codeProp names the property holding the region code and
// nameProp the display name. Features without a code or a polygonal
// geometry are skipped with a warning.
func LoadGeoJSON(r io.Reader, codeProp, nameProp string) ([]Boundary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "geo: read geojson")
	}
	var fc geojson.FeatureCollection
	if err := fc.UnmarshalJSON(data); err != nil {
		return nil, eris.Wrap(err, "geo: decode geojson")
	}

	log := zap.L().With(zap.String("component", "geo.geojson"))
	out := make([]Boundary, 0, len(fc.Features))
	seen := make(map[string]bool, len(fc.Features))
	for i, f := range fc.Features {
		code := propString(f.Properties, codeProp)
		if code == "" {
			log.Warn("skipping feature without region code", zap.Int("feature", i), zap.String("property", codeProp))
			continue
		}
		switch f.Geometry.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
		default:
			log.Warn("skipping non-polygon feature", zap.String("code", code), zap.String("type", fmt.Sprintf("%T", f.Geometry)))
			continue
		}
		if seen[code] {
			return nil, eris.Errorf("geo: duplicate region code %q in geojson", code)
		}
		seen[code] = true
		out = append(out, Boundary{
			Code: code,
			Name: propString(f.Properties, nameProp),
			Geom: f.Geometry,
		})
	}
	return out, nil
}

func propString(props map[string]interface{}, key string) string {
	if key == "" || props == nil {
		return ""
	}
	switch v := props[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}
