package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

type testFeature struct {
	name  string
	rings [][]geom.Coord
}

func toPoints(ring []geom.Coord) []shp.Point {
	pts := make([]shp.Point, len(ring))
	for i, c := range ring {
		pts[i] = shp.Point{X: c[0], Y: c[1]}
	}
	return pts
}

// writeShapefile writes a polygon shapefile with a single DPTO_CNMBR
// attribute and returns the path of the .shp file.
func writeShapefile(t *testing.T, dir string, features []testFeature) string {
	t.Helper()

	path := filepath.Join(dir, "departamentos.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("DPTO_CCDGO", 4),
		shp.StringField("DPTO_CNMBR", 60),
	}))

	for i, f := range features {
		parts := make([][]shp.Point, len(f.rings))
		for j, r := range f.rings {
			parts[j] = toPoints(r)
		}
		poly := shp.Polygon(*shp.NewPolyLine(parts))
		row := w.Write(&poly)
		require.NoError(t, w.WriteAttribute(int(row), 0, string(rune('A'+i))))
		require.NoError(t, w.WriteAttribute(int(row), 1, f.name))
	}
	w.Close()

	// go-shp v0.1.1 names the attribute table "<base>dbf".
	base := path[:len(path)-len(filepath.Ext(path))]
	if _, err := os.Stat(base + "dbf"); err == nil {
		require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	}

	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testColumns() TableColumns {
	return TableColumns{
		Name:    "DEPARTAMENTO_DE_OFERTA_DEL_PROGRAMA",
		Count:   "CANTIDAD_PROGRAMAS",
		Average: "PROMEDIO_MATRICULADOS",
	}
}

func int64p(v int64) *int64 { return &v }

func float64p(v float64) *float64 { return &v }
