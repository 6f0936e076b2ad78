package geo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeShapefile(t *testing.T, records map[string][][]shp.Point, order []string, names map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regions.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("CODE", 10),
		shp.StringField("NAME", 20),
	}))
	for _, code := range order {
		poly := shp.Polygon(*shp.NewPolyLine(records[code]))
		n := w.Write(&poly)
		require.NoError(t, w.WriteAttribute(int(n), 0, code))
		require.NoError(t, w.WriteAttribute(int(n), 1, names[code]))
	}
	w.Close()
	// The v0.1.1 writer names the DBF "<base>dbf" without the dot.
	base := strings.TrimSuffix(path, ".shp")
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	return path
}

func ring(x, y float64) []shp.Point {
	return []shp.Point{{X: x, Y: y}, {X: x, Y: y + 1}, {X: x + 1, Y: y + 1}, {X: x + 1, Y: y}, {X: x, Y: y}}
}

func TestLoadShapefile(t *testing.T) {
	path := writeShapefile(t,
		map[string][][]shp.Point{
			"R1": {ring(0, 0)},
			"R2": {ring(1, 0), ring(9, 9)},
			"R3": {ring(5, 5)},
		},
		[]string{"R1", "R2", "R3"},
		map[string]string{"R1": "North", "R2": "Islands", "R3": "Far"},
	)

	got, err := LoadShapefile(path, "code", "name", "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "R1", got[0].Code)
	assert.Equal(t, "North", got[0].Name)
	assert.Equal(t, "Islands", got[1].Name)

	assert.Equal(t, map[string][]string{
		"R1": {"R2"},
		"R2": {"R1"},
		"R3": {},
	}, Neighbours(got))
}

func TestLoadShapefile_Charset(t *testing.T) {
	path := writeShapefile(t,
		map[string][][]shp.Point{"R1": {ring(0, 0)}},
		[]string{"R1"},
		map[string]string{"R1": "Caf\xe9"},
	)
	got, err := LoadShapefile(path, "CODE", "NAME", "windows-1252")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Café", got[0].Name)
}

func TestLoadShapefile_Errors(t *testing.T) {
	path := writeShapefile(t, map[string][][]shp.Point{"R1": {ring(0, 0)}}, []string{"R1"}, map[string]string{})

	_, err := LoadShapefile(path, "missing", "", "")
	require.Error(t, err)

	_, err = LoadShapefile(path, "code", "", "no-such-charset")
	require.Error(t, err)

	_, err = LoadShapefile(filepath.Join(t.TempDir(), "absent.shp"), "code", "", "")
	require.Error(t, err)
}
