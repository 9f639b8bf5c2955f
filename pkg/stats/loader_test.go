package stats

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const loaderCSV = "DEPARTAMENTO_DE_OFERTA_DEL_PROGRAMA,CANTIDAD_PROGRAMAS,PROMEDIO_MATRICULADOS\n" +
	"ANTIOQUIA,1000,250.5\n" +
	"Bogotá D.C.,30,310\n" +
	"Cesar,20,98.25\n" +
	"Chocó,10,40\n" +
	"EXTRANJERO,7,1\n"

func loaderFixture(t *testing.T) (LoaderConfig, string) {
	t.Helper()

	dir := t.TempDir()
	shpPath := writeShapefile(t, dir, []testFeature{
		{name: "Antioquia", rings: [][]geom.Coord{noisySquare(1, 0.001)}},
		{name: "BOGOTÁ D.C.", rings: [][]geom.Coord{square(2, 2, 1)}},
		{name: "Cesar", rings: [][]geom.Coord{square(4, 4, 1), square(6, 6, 1)}},
		{name: "Chocó", rings: [][]geom.Coord{square(8, 8, 1)}},
		{name: "Vaupés", rings: [][]geom.Coord{square(10, 10, 1)}},
	})
	csvPath := writeFile(t, dir, "resumen.csv", loaderCSV)

	return LoaderConfig{
		StatsPath:         csvPath,
		StatsColumns:      testColumns(),
		Geometry:          GeometrySource{Path: shpPath, NameField: "DPTO_CNMBR"},
		CachePath:         filepath.Join(dir, "cache", "merged.geojson"),
		SimplifyTolerance: 0.02,
	}, dir
}

func TestLoaderColdPath(t *testing.T) {
	cfg, _ := loaderFixture(t)

	ds, err := NewLoader(cfg, zap.NewNop()).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, ds.Regions, 5)
	assert.FileExists(t, cfg.CachePath)
	assert.FileExists(t, FingerprintPath(cfg.CachePath))

	assert.Equal(t, "ANTIOQUIA", ds.Regions[0].Key)
	assert.Equal(t, int64(1000), *ds.Regions[0].ProgramCount)
	assert.Len(t, ds.Regions[0].Geometry.Coords()[0][0], 5, "boundary simplified")
	assert.True(t, ds.Regions[0].TopQuartile)

	assert.Equal(t, "BOGOTA D.C.", ds.Regions[1].Key)
	assert.Equal(t, 310.0, *ds.Regions[1].AverageEnrollment)

	vaupes := ds.Find("VAUPES")
	require.NotNil(t, vaupes)
	assert.Nil(t, vaupes.ProgramCount)
	assert.Nil(t, vaupes.LogCount)
	assert.False(t, vaupes.TopQuartile)

	assert.Nil(t, ds.Find("EXTRANJERO"))
}

func TestLoaderWarmPathMatchesColdPath(t *testing.T) {
	cfg, _ := loaderFixture(t)
	loader := NewLoader(cfg, zap.NewNop())

	cold, err := loader.Load(context.Background())
	require.NoError(t, err)

	// The cache alone is enough once written.
	require.NoError(t, os.Remove(cfg.StatsPath))

	warm, err := loader.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, warm.Regions, len(cold.Regions))
	assert.Equal(t, cold.QuartileCutoff, warm.QuartileCutoff)
	for i := range cold.Regions {
		c, w := cold.Regions[i], warm.Regions[i]
		assert.Equal(t, c.Key, w.Key)
		assert.Equal(t, c.Name, w.Name)
		assert.Equal(t, c.Attributes, w.Attributes)
		assert.Equal(t, c.ProgramCount, w.ProgramCount)
		assert.Equal(t, c.AverageEnrollment, w.AverageEnrollment)
		assert.Equal(t, c.LogCount, w.LogCount)
		assert.Equal(t, c.TopQuartile, w.TopQuartile)
		assert.Equal(t, c.Geometry.Coords(), w.Geometry.Coords())
	}
}

func TestLoaderWarmPathSkipsSources(t *testing.T) {
	cfg, dir := loaderFixture(t)
	loader := NewLoader(cfg, zap.NewNop())

	_, err := loader.Load(context.Background())
	require.NoError(t, err)

	// A changed statistics file is shadowed by the cache.
	writeFile(t, dir, "resumen.csv", "DEPARTAMENTO_DE_OFERTA_DEL_PROGRAMA,CANTIDAD_PROGRAMAS,PROMEDIO_MATRICULADOS\nANTIOQUIA,1,1\n")

	ds, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), *ds.Find("ANTIOQUIA").ProgramCount)

	cfg.Rebuild = true
	ds, err = NewLoader(cfg, zap.NewNop()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), *ds.Find("ANTIOQUIA").ProgramCount)
}

func TestLoaderFailures(t *testing.T) {
	t.Run("missing statistics", func(t *testing.T) {
		cfg, _ := loaderFixture(t)
		cfg.StatsPath = filepath.Join(t.TempDir(), "nope.csv")

		_, err := NewLoader(cfg, nil).Load(context.Background())
		assert.True(t, errors.Is(err, os.ErrNotExist))
		assert.NoFileExists(t, cfg.CachePath)
	})

	t.Run("missing geometry", func(t *testing.T) {
		cfg, _ := loaderFixture(t)
		cfg.Geometry.Path = filepath.Join(t.TempDir(), "nope.shp")

		_, err := NewLoader(cfg, nil).Load(context.Background())
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("malformed cache", func(t *testing.T) {
		cfg, _ := loaderFixture(t)
		require.NoError(t, os.MkdirAll(filepath.Dir(cfg.CachePath), 0755))
		require.NoError(t, os.WriteFile(cfg.CachePath, []byte("{not geojson"), 0644))

		_, err := NewLoader(cfg, nil).Load(context.Background())
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		cfg, _ := loaderFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewLoader(cfg, nil).Load(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestFingerprint(t *testing.T) {
	cfg, dir := loaderFixture(t)

	a, err := Fingerprint(cfg.StatsPath, cfg.Geometry.Path)
	require.NoError(t, err)
	b, err := Fingerprint(cfg.StatsPath, cfg.Geometry.Path)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	writeFile(t, dir, "resumen.csv", loaderCSV+"META,1,1\n")
	c, err := Fingerprint(cfg.StatsPath, cfg.Geometry.Path)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = Fingerprint(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestRecordFingerprintLogsFailures(t *testing.T) {
	cfg, _ := loaderFixture(t)
	cfg.StatsPath = filepath.Join(t.TempDir(), "gone.csv")

	core, logs := observer.New(zap.WarnLevel)
	NewLoader(cfg, zap.New(core)).recordFingerprint()

	assert.Equal(t, 1, logs.FilterMessage("Could not fingerprint cache sources").Len())
	assert.NoFileExists(t, FingerprintPath(cfg.CachePath))
}
